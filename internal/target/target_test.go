package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleName(t *testing.T) {
	ctor := &Target{Callable: Callable{Kind: CallConstructor, Name: "NewServer", TypeName: "Server"}}
	assert.Equal(t, "Server", ctor.SimpleName())

	fn := &Target{Callable: Callable{Kind: CallFunction, Name: "connect"}}
	assert.Equal(t, "connect", fn.SimpleName())
}

func TestParamNames(t *testing.T) {
	c := Callable{Params: []Param{{Name: "host"}, {Name: "p1"}, {Name: "opts", Variadic: true}}}
	assert.Equal(t, []string{"host", "p1", "opts"}, c.ParamNames())
	assert.Empty(t, Callable{}.ParamNames())
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "type", KindType.String())
	assert.Equal(t, "function", KindFunction.String())
	assert.Equal(t, "literal", CallLiteral.String())
	assert.Equal(t, "unknown", CallKind(9).String())
}
