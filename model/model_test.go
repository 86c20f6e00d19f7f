package model

import "testing"

func TestMetadataCloneIsIndependent(t *testing.T) {
	original := Metadata{"k": "v"}
	clone := original.Clone()
	clone["k"] = "changed"
	if original["k"] != "v" {
		t.Error("mutating a clone should not affect the original")
	}
}

func TestMetadataCloneNil(t *testing.T) {
	var m Metadata
	if m.Clone() != nil {
		t.Error("cloning a nil Metadata should return nil")
	}
}
