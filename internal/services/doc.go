// Package services defines the error taxonomy shared by the orchestrator and
// the external tool adapters, along with helpers to wrap errors with
// component context and classify failures for user-facing messages.
package services
