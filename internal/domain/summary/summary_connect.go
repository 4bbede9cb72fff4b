package summary

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/FACorreiaa/subbase-api/internal/types"
	"github.com/FACorreiaa/subbase-api/pkg/connectjson"
)

const (
	SummaryServiceName                = "subbase.v1.SummaryService"
	SummaryServiceGetSummaryProcedure = "/subbase.v1.SummaryService/GetSummary"
)

func NewSummaryServiceHandler(h *Handler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connectjson.WithCodec()}, opts...)
	getSummary := connect.NewUnaryHandler(SummaryServiceGetSummaryProcedure, h.GetSummary, opts...)

	return "/" + SummaryServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SummaryServiceGetSummaryProcedure:
			getSummary.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

type SummaryServiceClient struct {
	getSummary *connect.Client[types.GetSummaryRequest, types.GetSummaryResponse]
}

func NewSummaryServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SummaryServiceClient {
	opts = append([]connect.ClientOption{connectjson.WithCodec()}, opts...)
	return &SummaryServiceClient{
		getSummary: connect.NewClient[types.GetSummaryRequest, types.GetSummaryResponse](httpClient, baseURL+SummaryServiceGetSummaryProcedure, opts...),
	}
}

func (c *SummaryServiceClient) GetSummary(ctx context.Context, req *connect.Request[types.GetSummaryRequest]) (*connect.Response[types.GetSummaryResponse], error) {
	return c.getSummary.CallUnary(ctx, req)
}
