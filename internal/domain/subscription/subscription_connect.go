package subscription

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/FACorreiaa/subbase-api/internal/types"
	"github.com/FACorreiaa/subbase-api/pkg/connectjson"
)

const SubscriptionServiceName = "subbase.v1.SubscriptionService"

const (
	SubscriptionServiceListSubscriptionsProcedure  = "/subbase.v1.SubscriptionService/ListSubscriptions"
	SubscriptionServiceGetSubscriptionProcedure    = "/subbase.v1.SubscriptionService/GetSubscription"
	SubscriptionServiceCreateSubscriptionProcedure = "/subbase.v1.SubscriptionService/CreateSubscription"
	SubscriptionServiceUpdateSubscriptionProcedure = "/subbase.v1.SubscriptionService/UpdateSubscription"
	SubscriptionServicePatchSubscriptionProcedure  = "/subbase.v1.SubscriptionService/PatchSubscription"
	SubscriptionServiceDeleteSubscriptionProcedure = "/subbase.v1.SubscriptionService/DeleteSubscription"
)

// NewSubscriptionServiceHandler builds the HTTP handler serving every SubscriptionService procedure.
func NewSubscriptionServiceHandler(h *Handler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connectjson.WithCodec()}, opts...)

	list := connect.NewUnaryHandler(SubscriptionServiceListSubscriptionsProcedure, h.ListSubscriptions, opts...)
	get := connect.NewUnaryHandler(SubscriptionServiceGetSubscriptionProcedure, h.GetSubscription, opts...)
	create := connect.NewUnaryHandler(SubscriptionServiceCreateSubscriptionProcedure, h.CreateSubscription, opts...)
	update := connect.NewUnaryHandler(SubscriptionServiceUpdateSubscriptionProcedure, h.UpdateSubscription, opts...)
	patch := connect.NewUnaryHandler(SubscriptionServicePatchSubscriptionProcedure, h.PatchSubscription, opts...)
	del := connect.NewUnaryHandler(SubscriptionServiceDeleteSubscriptionProcedure, h.DeleteSubscription, opts...)

	return "/" + SubscriptionServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SubscriptionServiceListSubscriptionsProcedure:
			list.ServeHTTP(w, r)
		case SubscriptionServiceGetSubscriptionProcedure:
			get.ServeHTTP(w, r)
		case SubscriptionServiceCreateSubscriptionProcedure:
			create.ServeHTTP(w, r)
		case SubscriptionServiceUpdateSubscriptionProcedure:
			update.ServeHTTP(w, r)
		case SubscriptionServicePatchSubscriptionProcedure:
			patch.ServeHTTP(w, r)
		case SubscriptionServiceDeleteSubscriptionProcedure:
			del.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// SubscriptionServiceClient calls SubscriptionService over Connect with JSON payloads.
type SubscriptionServiceClient struct {
	list   *connect.Client[types.ListSubscriptionsRequest, types.ListSubscriptionsResponse]
	get    *connect.Client[types.GetSubscriptionRequest, types.SubscriptionResponse]
	create *connect.Client[types.CreateSubscriptionRequest, types.SubscriptionResponse]
	update *connect.Client[types.UpdateSubscriptionRequest, types.SubscriptionResponse]
	patch  *connect.Client[types.PatchSubscriptionRequest, types.SubscriptionResponse]
	del    *connect.Client[types.DeleteSubscriptionRequest, types.DeleteSubscriptionResponse]
}

func NewSubscriptionServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SubscriptionServiceClient {
	opts = append([]connect.ClientOption{connectjson.WithCodec()}, opts...)
	return &SubscriptionServiceClient{
		list:   connect.NewClient[types.ListSubscriptionsRequest, types.ListSubscriptionsResponse](httpClient, baseURL+SubscriptionServiceListSubscriptionsProcedure, opts...),
		get:    connect.NewClient[types.GetSubscriptionRequest, types.SubscriptionResponse](httpClient, baseURL+SubscriptionServiceGetSubscriptionProcedure, opts...),
		create: connect.NewClient[types.CreateSubscriptionRequest, types.SubscriptionResponse](httpClient, baseURL+SubscriptionServiceCreateSubscriptionProcedure, opts...),
		update: connect.NewClient[types.UpdateSubscriptionRequest, types.SubscriptionResponse](httpClient, baseURL+SubscriptionServiceUpdateSubscriptionProcedure, opts...),
		patch:  connect.NewClient[types.PatchSubscriptionRequest, types.SubscriptionResponse](httpClient, baseURL+SubscriptionServicePatchSubscriptionProcedure, opts...),
		del:    connect.NewClient[types.DeleteSubscriptionRequest, types.DeleteSubscriptionResponse](httpClient, baseURL+SubscriptionServiceDeleteSubscriptionProcedure, opts...),
	}
}

func (c *SubscriptionServiceClient) ListSubscriptions(ctx context.Context, req *connect.Request[types.ListSubscriptionsRequest]) (*connect.Response[types.ListSubscriptionsResponse], error) {
	return c.list.CallUnary(ctx, req)
}

func (c *SubscriptionServiceClient) GetSubscription(ctx context.Context, req *connect.Request[types.GetSubscriptionRequest]) (*connect.Response[types.SubscriptionResponse], error) {
	return c.get.CallUnary(ctx, req)
}

func (c *SubscriptionServiceClient) CreateSubscription(ctx context.Context, req *connect.Request[types.CreateSubscriptionRequest]) (*connect.Response[types.SubscriptionResponse], error) {
	return c.create.CallUnary(ctx, req)
}

func (c *SubscriptionServiceClient) UpdateSubscription(ctx context.Context, req *connect.Request[types.UpdateSubscriptionRequest]) (*connect.Response[types.SubscriptionResponse], error) {
	return c.update.CallUnary(ctx, req)
}

func (c *SubscriptionServiceClient) PatchSubscription(ctx context.Context, req *connect.Request[types.PatchSubscriptionRequest]) (*connect.Response[types.SubscriptionResponse], error) {
	return c.patch.CallUnary(ctx, req)
}

func (c *SubscriptionServiceClient) DeleteSubscription(ctx context.Context, req *connect.Request[types.DeleteSubscriptionRequest]) (*connect.Response[types.DeleteSubscriptionResponse], error) {
	return c.del.CallUnary(ctx, req)
}
