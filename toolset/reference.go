package toolset

import (
	"context"
	"errors"
	"fmt"

	"github.com/clearcoat/paintdesk/catalog"
	pderrors "github.com/clearcoat/paintdesk/errors"
	"github.com/clearcoat/paintdesk/tool"
)

// KnowledgeReader is the catalog surface the reference tools need.
type KnowledgeReader interface {
	SearchKnowledge(ctx context.Context, query string, top int) ([]catalog.Document, error)
	GetPolicy(ctx context.Context, topic string) (*catalog.Document, error)
}

// ReferenceTools returns the tools backing the knowledge agent.
func ReferenceTools(reader KnowledgeReader) []*tool.Tool {
	return []*tool.Tool{
		{
			Name:        "search_knowledge",
			Description: "Search store policy and reference documents",
			Parameters: []tool.Parameter{
				{
					Name:        "query",
					Type:        "string",
					Description: "Keywords to match against document titles, topics and content",
					Required:    true,
				},
				{
					Name:        "top",
					Type:        "integer",
					Description: "Maximum number of documents to return",
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				docs, err := reader.SearchKnowledge(ctx, stringArg(args, "query"), intArg(args, "top", 5))
				if err != nil {
					return "", fmt.Errorf("knowledge search failed: %w", err)
				}
				if len(docs) == 0 {
					return "No documents matched the search.", nil
				}
				return encodeResult(docs)
			},
		},
		{
			Name:        "get_policy",
			Description: "Get the store policy document for a topic such as returns, warranty or shipping",
			Parameters: []tool.Parameter{
				{
					Name:        "topic",
					Type:        "string",
					Description: "The policy topic",
					Required:    true,
					Enum:        []string{"returns", "warranty", "shipping", "refunds"},
				},
			},
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				doc, err := reader.GetPolicy(ctx, stringArg(args, "topic"))
				if errors.Is(err, pderrors.ErrNotFound) {
					return "No policy document for that topic.", nil
				}
				if err != nil {
					return "", fmt.Errorf("policy lookup failed: %w", err)
				}
				return doc.Content, nil
			},
		},
	}
}
