// Package mcpserver exposes a read-only query_evidence tool over the
// fused hybrid retriever (C3), so an external agent can inspect what
// evidence a theme query would surface without running the full scoring
// matrix. Query embeddings still go through the cache's fetch/replay gate.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/esgscore/maturity/pkg/retrieve"
)

// QueryEvidenceArgs is the tool's input schema.
type QueryEvidenceArgs struct {
	DocID string  `json:"doc_id" jsonschema:"the ingested document to query"`
	Query string  `json:"query" jsonschema:"the theme or free-text query"`
	K     int     `json:"k,omitempty" jsonschema:"number of fused hits to return, default 10"`
	Alpha float64 `json:"alpha,omitempty" jsonschema:"lexical/dense fusion weight in [0,1], default 0.6"`
}

// QueryEvidenceResult mirrors retrieve.Hit so callers never need to import
// the retrieval package directly.
type QueryEvidenceResult struct {
	Hits []retrieve.Hit `json:"hits"`
}

// IndexRoot resolves the on-disk location of a built document index.
type IndexRoot func(docID string) (string, error)

// Server wires the query_evidence tool against a previously built index
// root; it never builds an index. Each query text is embedded through the
// Embedder's C2 cache, so in fetch phase an uncached query makes an online
// call and in replay phase it fails closed.
type Server struct {
	root     string
	embedder *retrieve.Embedder
	bm25K1   float64
	bm25B    float64
}

// New returns a Server that loads indexes from root on each query.
func New(root string, embedder *retrieve.Embedder, bm25K1, bm25B float64) *Server {
	return &Server{root: root, embedder: embedder, bm25K1: bm25K1, bm25B: bm25B}
}

// Register attaches the query_evidence tool to an MCP server instance.
func (s *Server) Register(srv *mcp.Server) {
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "query_evidence",
		Description: "Run the fused BM25+dense retriever for a document and return top-K hits with both component scores.",
	}, s.queryEvidence)
}

func (s *Server) queryEvidence(ctx context.Context, _ *mcp.CallToolRequest, args QueryEvidenceArgs) (*mcp.CallToolResult, QueryEvidenceResult, error) {
	k := args.K
	if k <= 0 {
		k = 10
	}
	alpha := args.Alpha
	if alpha == 0 {
		alpha = 0.6
	}

	idx, err := retrieve.LoadIndex(s.root, args.DocID, s.bm25K1, s.bm25B)
	if err != nil {
		return nil, QueryEvidenceResult{}, fmt.Errorf("query_evidence: %w", err)
	}
	hits, err := idx.Query(ctx, s.embedder, args.Query, k, alpha)
	if err != nil {
		return nil, QueryEvidenceResult{}, fmt.Errorf("query_evidence: %w", err)
	}
	return nil, QueryEvidenceResult{Hits: hits}, nil
}

// Serve runs the MCP server over stdio until ctx is cancelled, the shape
// an external agent client (e.g. an editor integration) expects.
func Serve(ctx context.Context, s *Server) error {
	impl := &mcp.Implementation{Name: "esgmatrix-evidence", Version: "1.0.0"}
	srv := mcp.NewServer(impl, nil)
	s.Register(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}
