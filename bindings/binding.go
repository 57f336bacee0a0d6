package bindings

import "fmt"

/* Binding maps one service id (the webhook URL path segment) to the name of
 * a registered handler. The set of bindings is the active_handlers map of
 * the deployment: a service id without a binding is an unknown service
 */
type Binding struct {
	ServiceID string
	Handler   string
}

// Validate checks if the binding is well formed
func (b *Binding) Validate() error {
	if b.ServiceID == "" {
		return fmt.Errorf("service_id cannot be empty")
	}
	if b.Handler == "" {
		return fmt.Errorf("handler cannot be empty for service %s", b.ServiceID)
	}
	return nil
}
