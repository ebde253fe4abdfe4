package internalcheck

import (
	"testing"

	"golang.org/x/tools/go/packages"
)

const modulePath = "github.com/universal-fhevm/fhevm-go"

var patterns = []string{
	modulePath + "/pkg/fhevm/...",
	modulePath + "/internal/...",
	modulePath + "/cmd/...",
}

func loadPackages(t *testing.T) []*packages.Package {
	t.Helper()
	cfg := &packages.Config{
		Mode: packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedFiles | packages.NeedName,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if n := packages.PrintErrors(pkgs); n > 0 {
		t.Fatalf("load packages: %d errors", n)
	}
	return pkgs
}
