// Package globalmart provides a Go client for the GlobalMart fashion
// recommendation API.
//
// The client wraps the HTTP surface: text and image search, session feeds,
// match checks, complete-the-look, shopper profiles, carts and feedback.
//
//	client, _ := globalmart.New("http://localhost:8000")
//	res, _ := client.Search(ctx, "red party dress", "Ada", 10)
//	for _, rec := range res.Recommendations {
//	    fmt.Println(rec.Rank, rec.Name, rec.ExplanationChips)
//	}
//
// Optional logging and metrics:
//
//	client, _ := globalmart.New("http://localhost:8000",
//	    globalmart.WithLogger(slog.Default()),
//	    globalmart.WithPrometheus(prometheus.DefaultRegisterer),
//	)
package globalmart
