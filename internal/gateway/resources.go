package gateway

import "net/http"

// Transform reshapes an inbound JSON object into the upstream schema.
type Transform func(map[string]any) map[string]any

// Resource describes one upstream endpoint exposed through the gateway.
type Resource struct {
	Name string
	// Path is appended to the upstream base URL.
	Path string
	// Method overrides the inbound method when set.
	Method    string
	Transform Transform
	// FailureMessage is returned for any non-2xx upstream status.
	FailureMessage string
	// SurfaceUpstreamMessage prefers the upstream's own "message" field.
	SurfaceUpstreamMessage bool
}

var (
	ListProducts = Resource{
		Name:           "products",
		Path:           "/products",
		FailureMessage: "Failed to fetch products",
	}
	CreateProduct = Resource{
		Name:           "products",
		Path:           "/products",
		Method:         http.MethodPost,
		Transform:      ProductDefaults,
		FailureMessage: "Failed to create product",
	}
	GetShipping = Resource{
		Name:           "shipping",
		Path:           "/settings/shipping",
		FailureMessage: "Failed to fetch shipping settings",
	}
	UpdateShipping = Resource{
		Name:           "shipping",
		Path:           "/settings/shipping",
		FailureMessage: "Failed to update shipping settings",
	}
	ListStores = Resource{
		Name:           "stores",
		Path:           "/stores",
		FailureMessage: "Failed to fetch stores",
	}
	RegisterVendor = Resource{
		Name:                   "register_vendor",
		Path:                   "/stores",
		Method:                 http.MethodPost,
		Transform:              VendorRegistration,
		FailureMessage:         "Failed to register vendor",
		SurfaceUpstreamMessage: true,
	}
	ListOrders = Resource{
		Name:           "orders",
		Path:           "/orders",
		FailureMessage: "Failed to fetch orders",
	}
	OrderSummary = Resource{
		Name:           "orders_summary",
		Path:           "/orders/summary",
		FailureMessage: "Failed to fetch order summary",
	}
)

var vendorFields = map[string]string{
	"username":   "user_login",
	"password":   "user_pass",
	"email":      "user_email",
	"store_name": "store_name",
	"first_name": "first_name",
	"last_name":  "last_name",
	"phone":      "phone",
	"address":    "address",
	"social":     "social",
}

// VendorRegistration renames the sign-up fields to the store API schema.
// Fields outside the sign-up form are dropped.
func VendorRegistration(in map[string]any) map[string]any {
	out := make(map[string]any, len(vendorFields))
	for from, to := range vendorFields {
		if v, ok := in[from]; ok && v != nil {
			out[to] = v
		}
	}
	return out
}

// ProductDefaults fills the fields a downloadable product needs and always
// publishes it.
func ProductDefaults(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+8)
	for k, v := range in {
		out[k] = v
	}

	if s, _ := out["type"].(string); s == "" {
		out["type"] = "simple"
	}
	if b, ok := out["downloadable"].(bool); !ok || b {
		out["downloadable"] = true
	}
	for _, k := range []string{"download_limit", "download_expiry"} {
		if out[k] == nil {
			out[k] = -1
		}
	}
	for _, k := range []string{"categories", "images", "downloads"} {
		if out[k] == nil {
			out[k] = []any{}
		}
	}
	out["status"] = "publish"
	return out
}
