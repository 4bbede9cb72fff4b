package insights

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/FACorreiaa/subbase-api/internal/types"
	"github.com/FACorreiaa/subbase-api/pkg/connectjson"
)

const (
	InsightsServiceName                      = "subbase.v1.InsightsService"
	InsightsServiceGenerateInsightsProcedure = "/subbase.v1.InsightsService/GenerateInsights"
)

func NewInsightsServiceHandler(h *Handler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connectjson.WithCodec()}, opts...)
	generateInsights := connect.NewUnaryHandler(InsightsServiceGenerateInsightsProcedure, h.GenerateInsights, opts...)

	return "/" + InsightsServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case InsightsServiceGenerateInsightsProcedure:
			generateInsights.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

type InsightsServiceClient struct {
	generateInsights *connect.Client[types.GenerateInsightsRequest, types.GenerateInsightsResponse]
}

func NewInsightsServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *InsightsServiceClient {
	opts = append([]connect.ClientOption{connectjson.WithCodec()}, opts...)
	return &InsightsServiceClient{
		generateInsights: connect.NewClient[types.GenerateInsightsRequest, types.GenerateInsightsResponse](
			httpClient, baseURL+InsightsServiceGenerateInsightsProcedure, opts...),
	}
}

func (c *InsightsServiceClient) GenerateInsights(ctx context.Context, req *connect.Request[types.GenerateInsightsRequest]) (*connect.Response[types.GenerateInsightsResponse], error) {
	return c.generateInsights.CallUnary(ctx, req)
}
