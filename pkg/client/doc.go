// Package client provides a Go client for the facedex HTTP service.
//
// The service turns an image containing exactly one face into a 128-dimensional
// embedding and ranks caller-supplied embeddings by similarity to a query.
// It keeps no state: callers store embeddings and send them back for search.
//
//	c, _ := client.New("http://localhost:5000")
//	emb, err := c.ExtractURL(ctx, "https://example.com/portrait.jpg")
//	var fe *client.ExtractionError
//	if errors.As(err, &fe) {
//	    // no face, several faces, undecodable image...
//	}
//	matches, _ := c.SearchSimilar(ctx, client.SearchRequest{
//	    Query:      emb,
//	    Candidates: []client.Candidate{{UserID: "u1", Embedding: stored}},
//	})
package client
