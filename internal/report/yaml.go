package report

import (
	"gopkg.in/yaml.v3"

	"github.com/grokify/releaseconductor/pkg/model"
)

// YAMLFormatter formats results as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// FormatReconcileResult formats a reconciliation result as YAML.
func (f *YAMLFormatter) FormatReconcileResult(result *model.ReconcileResult) (string, error) {
	data, err := yaml.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
