package internalcheck

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"strconv"
	"strings"
	"testing"
)

var secretNames = map[string]bool{
	"privatekey": true,
	"signature":  true,
	"sig":        true,
	"priv":       true,
}

func TestSecretsNeverLogged(t *testing.T) {
	var findings []string

	for _, pkg := range loadPackages(t) {
		for _, file := range pkg.Syntax {
			ast.Inspect(file, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}
				sel, ok := call.Fun.(*ast.SelectorExpr)
				if !ok {
					return true
				}
				obj := pkg.TypesInfo.Uses[sel.Sel]
				if obj == nil || obj.Pkg() == nil || !isLoggingCall(obj) {
					return true
				}

				for _, arg := range call.Args {
					if name, ok := secretArg(arg); ok {
						pos := pkg.Fset.Position(arg.Pos())
						findings = append(findings, fmt.Sprintf("%s: %s passed to %s.%s", pos, name, obj.Pkg().Name(), obj.Name()))
					}
				}
				return true
			})
		}
	}

	if len(findings) > 0 {
		t.Fatalf("secret logging policy violation:\n%s", strings.Join(findings, "\n"))
	}
}

func isLoggingCall(obj types.Object) bool {
	switch obj.Pkg().Path() {
	case "go.uber.org/zap", "log/slog", "log":
		return true
	case modulePath + "/pkg/fhevm/logging":
		switch obj.Name() {
		case "Debug", "Info", "Warn", "Error", "With":
			return true
		}
	}
	return false
}

// secretArg reports identifiers, fields and string keys that name a secret.
func secretArg(expr ast.Expr) (string, bool) {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name, secretNames[strings.ToLower(e.Name)]
	case *ast.SelectorExpr:
		return e.Sel.Name, secretNames[strings.ToLower(e.Sel.Name)]
	case *ast.BasicLit:
		if e.Kind != token.STRING {
			return "", false
		}
		s, err := strconv.Unquote(e.Value)
		if err != nil {
			return "", false
		}
		return s, secretNames[strings.ToLower(s)]
	}
	return "", false
}

func TestSecretArg(t *testing.T) {
	tests := []struct {
		expr ast.Expr
		want bool
	}{
		{ast.NewIdent("privateKey"), true},
		{ast.NewIdent("signature"), true},
		{ast.NewIdent("handle"), false},
		{&ast.SelectorExpr{X: ast.NewIdent("req"), Sel: ast.NewIdent("PrivateKey")}, true},
		{&ast.BasicLit{Kind: token.STRING, Value: `"signature"`}, true},
		{&ast.BasicLit{Kind: token.STRING, Value: `"chainId"`}, false},
		{&ast.BasicLit{Kind: token.INT, Value: "1"}, false},
	}
	for _, tt := range tests {
		_, got := secretArg(tt.expr)
		if got != tt.want {
			t.Errorf("secretArg(%#v) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}
