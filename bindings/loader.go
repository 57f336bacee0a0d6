package bindings

import (
	"fmt"
	"os"

	"github.com/marcelsud/webhook-receiver/webhook"
	"gopkg.in/yaml.v3"
)

/* Loader manages handler bindings from bindings.yaml
 * Provides in-memory lookup for fast access
 */

// Config represents the structure of bindings.yaml
type Config struct {
	Handlers []BindingConfig `yaml:"handlers"`
}

// BindingConfig represents a single binding in the YAML file
type BindingConfig struct {
	ServiceID string `yaml:"service_id"`
	Handler   string `yaml:"handler"`
}

// Loader holds the loaded bindings
type Loader struct {
	bindings map[string]*Binding
}

// NewLoader creates a new binding loader
func NewLoader() *Loader {
	return &Loader{
		bindings: make(map[string]*Binding),
	}
}

// Load reads and parses the bindings.yaml file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading bindings file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing bindings YAML: %w", err)
	}

	for _, bc := range config.Handlers {
		binding := &Binding{
			ServiceID: bc.ServiceID,
			Handler:   bc.Handler,
		}

		if err := binding.Validate(); err != nil {
			return fmt.Errorf("validating binding: %w", err)
		}

		l.bindings[binding.ServiceID] = binding
	}

	return nil
}

// Get retrieves a binding by its service id
func (l *Loader) Get(serviceID string) (*Binding, error) {
	binding, exists := l.bindings[serviceID]
	if !exists {
		return nil, fmt.Errorf("binding not found: %s", serviceID)
	}
	return binding, nil
}

// List returns all loaded bindings
func (l *Loader) List() []*Binding {
	bindings := make([]*Binding, 0, len(l.bindings))
	for _, binding := range l.bindings {
		bindings = append(bindings, binding)
	}
	return bindings
}

// Exists checks if a service id has a binding
func (l *Loader) Exists(serviceID string) bool {
	_, exists := l.bindings[serviceID]
	return exists
}

/* Apply registers every binding on the registry
 * Handlers may be registered after Apply runs; the registry resolves
 * bindings lazily at request time
 */
func (l *Loader) Apply(registry *webhook.Registry) {
	for _, binding := range l.bindings {
		registry.Bind(binding.ServiceID, binding.Handler)
	}
}
