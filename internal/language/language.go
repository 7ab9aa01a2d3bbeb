package language

import (
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

var (
	ErrNoOperation        = errors.New("language: document has no operation")
	ErrAmbiguousOperation = errors.New("language: operation name required for multi-operation document")
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// SelectOperation picks the operation to run. An empty name is allowed only
// when the document holds exactly one operation.
func SelectOperation(doc *QueryDocument, name string) (*OperationDefinition, error) {
	if len(doc.Operations) == 0 {
		return nil, ErrNoOperation
	}
	if name == "" {
		if len(doc.Operations) > 1 {
			return nil, ErrAmbiguousOperation
		}
		return doc.Operations[0], nil
	}
	op := doc.Operations.ForName(name)
	if op == nil {
		return nil, fmt.Errorf("language: unknown operation %q", name)
	}
	return op, nil
}

// Describe parses source and returns the selected operation's type and name.
func Describe(source, name string) (Operation, string, error) {
	doc, err := ParseQuery(source)
	if err != nil {
		return "", "", err
	}
	op, err := SelectOperation(doc, name)
	if err != nil {
		return "", "", err
	}
	return op.Operation, op.Name, nil
}
