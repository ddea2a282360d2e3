// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package authz

import (
	"testing"

	"github.com/ManuGH/leavegate/internal/testutil"
	"github.com/getkin/kin-openapi/openapi3"
)

func TestPolicyCoverage(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	specOps := map[string]struct{}{}
	for _, pathItem := range doc.Paths.Map() {
		if pathItem == nil {
			continue
		}
		for _, op := range pathItem.Operations() {
			if op == nil {
				continue
			}
			if op.OperationID == "" {
				t.Fatalf("operation id missing in document")
			}
			specOps[op.OperationID] = struct{}{}
		}
	}

	for opID := range specOps {
		if _, ok := operationCapabilities[opID]; !ok {
			t.Errorf("missing policy for operation %s", opID)
		}
	}
	for opID := range operationCapabilities {
		if _, ok := specOps[opID]; !ok {
			t.Errorf("policy defined for unknown operation %s", opID)
		}
	}
}

func TestPolicyUnauthenticatedAllowlist(t *testing.T) {
	for opID, c := range operationCapabilities {
		if c == CapNone && !IsUnauthenticatedAllowed(opID) {
			t.Errorf("operation %s requires nothing but is not allowlisted", opID)
		}
	}
	for opID := range unauthenticatedOperations {
		c, ok := operationCapabilities[opID]
		if !ok {
			t.Errorf("allowlisted operation %s missing policy entry", opID)
			continue
		}
		if c != CapNone {
			t.Errorf("allowlisted operation %s must not require a capability", opID)
		}
	}
}

func loadOpenAPIDoc(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	path := testutil.OpenAPISpecPath(t)
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		t.Fatalf("openapi load failed: %v", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		t.Fatalf("openapi validate failed: %v", err)
	}
	return doc
}
