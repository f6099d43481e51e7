// Package marker parses the buildergen directive that requests generation
// of a builder for the declaration it documents.
//
// The directive is a line comment in the doc comment of a type,
// constructor or function:
//
//	//buildergen:generate
//	//buildergen:generate className=PairBuilder packageName=./builders isPublic=false
//	//buildergen:generate required=name,port
//
// Like //go: directives, there is no space between the slashes and the
// directive name. The directive only exists in source; generated code
// carries no trace of it.
package marker

import (
	"fmt"
	"go/ast"
	"go/token"
	"slices"
	"strconv"
	"strings"
)

// Directive is the comment prefix (without the leading slashes) that marks
// a declaration for builder generation.
const Directive = "buildergen:generate"

const (
	keyClassName   = "className"
	keyPackageName = "packageName"
	keyIsPublic    = "isPublic"
	keyRequired    = "required"
)

// Request is the configuration carried by one or more directives attached
// to a declaration. Unset optional values are nil and get resolved to their
// defaults by the naming package.
type Request struct {
	// ClassName overrides the generated type name.
	ClassName *string
	// PackageName overrides the package the builder is generated into.
	// It is an import path within the target's module or a directory
	// relative to the target's directory.
	PackageName *string
	// IsPublic controls whether the generated type is exported.
	IsPublic bool
	// Required lists parameters whose presence Validate checks.
	Required []string
	// Pos is the position of the (last) directive comment.
	Pos token.Pos
}

// Default returns a Request with every option at its default value.
func Default() Request {
	return Request{IsPublic: true}
}

// Parse parses a single comment. It reports false if the comment is not a
// directive.
func Parse(comment string) (Request, bool, error) {
	req := Default()
	text, ok := strings.CutPrefix(comment, "//")
	if !ok {
		return req, false, nil
	}
	rest, ok := strings.CutPrefix(text, Directive)
	if !ok {
		return req, false, nil
	}
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		// e.g. //buildergen:generated
		return req, false, nil
	}

	args, err := split(rest)
	if err != nil {
		return req, true, err
	}
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			return req, true, fmt.Errorf("invalid %s argument %q: expected key=value", Directive, arg)
		}
		switch key {
		case keyClassName:
			req.ClassName = optional(value)
		case keyPackageName:
			req.PackageName = optional(value)
		case keyIsPublic:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return req, true, fmt.Errorf("invalid %s value %q: %w", keyIsPublic, value, err)
			}
			req.IsPublic = b
		case keyRequired:
			for _, name := range strings.Split(value, ",") {
				if name = strings.TrimSpace(name); name != "" {
					req.Required = append(req.Required, name)
				}
			}
		default:
			return req, true, fmt.Errorf("unknown %s option %q", Directive, key)
		}
	}
	return req, true, nil
}

// FromDoc returns the requests found in the given comment groups, in source
// order. Nil groups are skipped.
func FromDoc(groups ...*ast.CommentGroup) ([]Request, error) {
	var reqs []Request
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, c := range g.List {
			req, ok, err := Parse(c.Text)
			if !ok {
				continue
			}
			if err != nil {
				return nil, err
			}
			req.Pos = c.Slash
			reqs = append(reqs, req)
		}
	}
	return reqs, nil
}

// Has reports whether any of the comment groups carries a directive.
func Has(groups ...*ast.CommentGroup) bool {
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, c := range g.List {
			if _, ok, _ := Parse(c.Text); ok {
				return true
			}
		}
	}
	return false
}

// Merge combines the requests attached to one declaration. The last
// non-empty className and packageName win, the builder is public if any
// request says so and required parameters are unioned.
func Merge(reqs []Request) Request {
	if len(reqs) == 0 {
		return Default()
	}
	merged := Request{}
	for _, r := range reqs {
		if r.ClassName != nil {
			merged.ClassName = r.ClassName
		}
		if r.PackageName != nil {
			merged.PackageName = r.PackageName
		}
		merged.IsPublic = merged.IsPublic || r.IsPublic
		for _, name := range r.Required {
			if !slices.Contains(merged.Required, name) {
				merged.Required = append(merged.Required, name)
			}
		}
		merged.Pos = r.Pos
	}
	return merged
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// split breaks the directive arguments on white space. Values may be Go
// quoted strings.
func split(s string) ([]string, error) {
	var args []string
	for {
		s = strings.TrimLeft(s, " \t")
		if s == "" {
			return args, nil
		}
		key, rest, found := strings.Cut(s, "=")
		if !found || strings.ContainsAny(key, " \t") {
			end := strings.IndexAny(s, " \t")
			if end < 0 {
				end = len(s)
			}
			args = append(args, s[:end])
			s = s[end:]
			continue
		}
		if strings.HasPrefix(rest, `"`) {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, fmt.Errorf("invalid quoted value for %s: %w", key, err)
			}
			value, err := strconv.Unquote(quoted)
			if err != nil {
				return nil, fmt.Errorf("invalid quoted value for %s: %w", key, err)
			}
			args = append(args, key+"="+value)
			s = rest[len(quoted):]
			continue
		}
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			end = len(rest)
		}
		args = append(args, key+"="+rest[:end])
		s = rest[end:]
	}
}
