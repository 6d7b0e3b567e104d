package v1

import (
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/ast"
	"github.com/pkg/errors"

	"github.com/hrygo/sagely/store"
)

// knowledgeFilterEnv declares the fields a knowledge listing filter may
// reference. Built once; CEL environments are immutable.
var knowledgeFilterEnv = func() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("source", cel.StringType),
		cel.Variable("is_public", cel.BoolType),
		cel.Variable("owner_id", cel.IntType),
		cel.Variable("min_confidence", cel.DoubleType),
	)
	if err != nil {
		panic(err)
	}
	return env
}()

// parseKnowledgeFilter translates a CEL filter expression into store find
// conditions. Supported shapes: `source == "web"`, `is_public == true`,
// `owner_id == 2`, `min_confidence >= 0.5`, and conjunctions of those
// joined with `&&`.
func parseKnowledgeFilter(filterStr string, find *store.FindKnowledge) error {
	filterStr = strings.TrimSpace(filterStr)
	if filterStr == "" {
		return nil
	}

	celAST, issues := knowledgeFilterEnv.Compile(filterStr)
	if issues != nil && issues.Err() != nil {
		return errors.Wrapf(issues.Err(), "invalid filter expression: %s", filterStr)
	}

	return applyFilterExpr(celAST.NativeRep().Expr(), find)
}

func applyFilterExpr(expr ast.Expr, find *store.FindKnowledge) error {
	if expr == nil {
		return errors.New("empty expression")
	}
	if expr.Kind() != ast.CallKind {
		return errors.New("filter must be a comparison expression (e.g., source == \"web\")")
	}

	call := expr.AsCall()
	switch call.FunctionName() {
	case "_&&_":
		for _, arg := range call.Args() {
			if err := applyFilterExpr(arg, find); err != nil {
				return err
			}
		}
		return nil
	case "_==_", "_>=_":
	default:
		return errors.Errorf("unsupported operator: %s", call.FunctionName())
	}

	args := call.Args()
	if len(args) != 2 {
		return errors.New("invalid comparison expression")
	}

	field, value, err := identAndLiteral(args[0], args[1])
	if err != nil {
		return err
	}

	switch field {
	case "source":
		str, ok := value.(string)
		if !ok {
			return errors.New("source must compare against a string constant")
		}
		source := store.Source(str)
		find.Source = &source
	case "is_public":
		isPublic, ok := value.(bool)
		if !ok {
			return errors.New("is_public must compare against a bool constant")
		}
		find.IsPublic = &isPublic
	case "owner_id":
		id, ok := value.(int64)
		if !ok {
			return errors.New("owner_id must compare against an integer constant")
		}
		ownerID := int32(id)
		find.OwnerID = &ownerID
	case "min_confidence":
		switch v := value.(type) {
		case float64:
			find.MinConfidence = &v
		case int64:
			f := float64(v)
			find.MinConfidence = &f
		default:
			return errors.New("min_confidence must compare against a numeric constant")
		}
	default:
		return errors.Errorf("unknown filter field: %s", field)
	}
	return nil
}

// identAndLiteral resolves a comparison into its field name and constant,
// accepting the operands in either order.
func identAndLiteral(left, right ast.Expr) (string, any, error) {
	if left.Kind() == ast.LiteralKind && right.Kind() == ast.IdentKind {
		left, right = right, left
	}
	if left.Kind() != ast.IdentKind || right.Kind() != ast.LiteralKind {
		return "", nil, errors.New("filter must compare a field with a constant")
	}
	return left.AsIdent(), right.AsLiteral().Value(), nil
}
