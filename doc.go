// Package recdex recommends assessments from a catalog for a hiring query.
//
// A Client embeds every catalog item once, answers queries by nearest-neighbor
// search over those embeddings and balances technical and behavioural
// assessments when a query asks for both. It can also score itself against
// labeled queries with Recall@K.
//
//	client, _ := recdex.New(
//	    recdex.WithOpenAI(os.Getenv("OPENAI_API_KEY"), "", "text-embedding-3-small"),
//	    recdex.WithCatalogFile("data/catalog.json"),
//	)
//	defer client.Close()
//
//	_, _ = client.Rebuild(ctx)
//	set, _ := client.Recommend(ctx, recdex.Query{Text: "Java developer who collaborates"}, 10)
//	for _, r := range set.Items {
//	    fmt.Println(r.Rank, r.Item.Name, r.Item.URL)
//	}
package recdex
