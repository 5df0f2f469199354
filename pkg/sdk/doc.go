// Package docquery embeds the question pipeline in a Go program.
//
// The client samples every collection of a MongoDB database, compiles
// questions into read-only commands and runs them. With an Embedder and a
// Generator configured it asks the language model first and falls back to
// the rule compiler.
//
// # Rules only
//
//	client, _ := docquery.New(ctx, docquery.WithMongo("mongodb://localhost:27017", "shop"))
//	defer client.Close(ctx)
//	_, _ = client.Refresh(ctx)
//	ans, _ := client.Ask(ctx, "How many orders were placed in 2024?")
//	fmt.Println(ans.Documents)
//
// # With a language model
//
//	client, _ := docquery.New(ctx,
//	    docquery.WithMongo(uri, "shop"),
//	    docquery.WithEmbedder(myEmbedder, "nomic-embed-text"),
//	    docquery.WithGenerator(myGenerator),
//	)
//
// Commands that would modify data are rejected with ErrProhibitedOperation
// before they reach the database.
package docquery
