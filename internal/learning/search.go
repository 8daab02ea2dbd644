package learning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const docsSearchAPIVersion = "2024-12-01-preview"

// DocHit is one search_docs result.
type DocHit struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// SearchDocs runs a semantic query over the curriculum index.
func (s *Service) SearchDocs(ctx context.Context, args map[string]any) (any, error) {
	query, err := requireString(args, "query")
	if err != nil {
		return nil, err
	}
	top := clamp(intArg(args, "top", 5), 1, 50)

	sc := s.cfg.Search
	if sc.Endpoint == "" || sc.APIKey == "" || sc.Index == "" {
		return map[string]any{"results": []DocHit{{ID: "env-missing", Content: "환경변수 설정을 확인하세요."}}}, nil
	}

	body, _ := json.Marshal(map[string]any{"search": query, "queryType": "semantic", "top": top})
	u := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", sc.Endpoint, url.PathEscape(sc.Index), docsSearchAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", sc.APIKey)

	var data struct {
		Value []map[string]any `json:"value"`
	}
	if err := s.doJSON(req, &data); err != nil {
		return nil, fmt.Errorf("search docs: %w", err)
	}
	hits := make([]DocHit, 0, len(data.Value))
	for _, item := range data.Value {
		hits = append(hits, DocHit{
			ID:      firstString(item, "@search.documentId", "id"),
			Content: firstString(item, "content", "text"),
			Source:  firstString(item, "source", "url"),
		})
	}
	return map[string]any{"results": hits}, nil
}
