// Package profilesearch embeds the profile semantic-search engine in a Go
// program without the HTTP server.
//
// A Client owns one index. Load a corpus, then query it:
//
//	client, _ := profilesearch.New(
//	    profilesearch.WithEmbedder(myEmbedder),
//	    profilesearch.WithSQLite("profiles.db"),
//	)
//	defer client.Close()
//
//	_, _ = client.LoadCSV(ctx, "educators.csv", profilesearch.UTF8)
//	results, _ := client.Search(ctx, "machine learning in Berlin", 5)
//	for _, r := range results {
//	    fmt.Println(r.Position, r.Score, r.Value("Name"))
//	}
//
// With the SQLite backing, a later process can call RestoreCSV to serve the
// persisted vectors without re-embedding the corpus. It fails with
// ErrCorpusChanged when the file no longer matches what was embedded.
package profilesearch
