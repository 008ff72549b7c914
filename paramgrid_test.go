package paramgrid_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paramgrid/paramgrid"
)

type runLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *runLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

func (l *runLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

type adultSuite struct {
	log *runLog
}

func (s *adultSuite) TestIsAdult(t *testing.T, age int, expect bool) {
	s.log.add("age=%d expect=%v", age, expect)
	assert.Equal(t, expect, age >= 18)
}

func TestRun_MethodRows(t *testing.T) {
	log := &runLog{}
	paramgrid.Run(t, &adultSuite{log: log},
		paramgrid.Method("TestIsAdult",
			paramgrid.Params("age", "expect"),
			paramgrid.Declare(paramgrid.Rows(
				"{age: 17, expect: false}",
				"{age: 22, expect: true}",
			)),
		),
	)

	assert.Equal(t, []string{
		"age=17 expect=false",
		"age=22 expect=true",
	}, log.all())
}

type boolGridSuite struct {
	log *runLog

	A bool `param:""`
	B bool `param:""`
}

func (s *boolGridSuite) TestGrid(t *testing.T) {
	s.log.add("%v-%v", s.A, s.B)
}

func TestRun_ImplicitBoolFieldsCrossProduct(t *testing.T) {
	log := &runLog{}
	paramgrid.Run(t, &boolGridSuite{log: log})

	assert.Equal(t, []string{
		"false-false", "false-true",
		"true-false", "true-true",
	}, log.all())
}

type suit int

const (
	hearts suit = iota
	spades
	clubs
)

func init() {
	paramgrid.RegisterEnum(map[string]suit{
		"HEARTS": hearts,
		"SPADES": spades,
		"CLUBS":  clubs,
	})
}

type suitSuite struct {
	log *runLog

	Suit suit `param:""`
}

func (s *suitSuite) TestDeal(t *testing.T) {
	s.log.add("%d", s.Suit)
	c, ok := paramgrid.Current(t)
	require.True(t, ok)
	s.log.add("name=%s", c.Name)
}

func TestRun_ImplicitEnumExpandsInValueOrder(t *testing.T) {
	log := &runLog{}
	paramgrid.Run(t, &suitSuite{log: log})

	assert.Equal(t, []string{
		"0", "name=TestDeal[HEARTS]",
		"1", "name=TestDeal[SPADES]",
		"2", "name=TestDeal[CLUBS]",
	}, log.all())
}

type taggedSuite struct {
	log *runLog

	Mode string `param:"[fast, slow]"`
}

func (s *taggedSuite) TestMode(t *testing.T) {
	s.log.add("%s", s.Mode)
}

func TestRun_TagLiterals(t *testing.T) {
	log := &runLog{}
	paramgrid.Run(t, &taggedSuite{log: log})

	assert.Equal(t, []string{"fast", "slow"}, log.all())
}

type ctorSuite struct {
	log   *runLog
	scale int
	dirty bool
}

func (s *ctorSuite) TestScale(t *testing.T, x int) {
	require.False(t, s.dirty, "each case must get a fresh instance")
	s.dirty = true
	s.log.add("%d*%d", s.scale, x)
}

func TestRun_ConstructorBuildsFreshInstancePerCase(t *testing.T) {
	log := &runLog{}
	paramgrid.Run(t, &ctorSuite{},
		paramgrid.Constructor(
			func(scale int) *ctorSuite { return &ctorSuite{log: log, scale: scale} },
			paramgrid.Params("scale"),
			paramgrid.Param("scale", paramgrid.Values("2", "3")),
		),
		paramgrid.Method("TestScale",
			paramgrid.Params("x"),
			paramgrid.Param("x", paramgrid.Values("10", "20")),
		),
	)

	assert.Equal(t, []string{"2*10", "2*20", "3*10", "3*20"}, log.all())
}

func TestRun_PrototypeIsCopiedWithoutConstructor(t *testing.T) {
	log := &runLog{}
	proto := &ctorSuite{log: log, scale: 7}
	paramgrid.Run(t, proto,
		paramgrid.Method("TestScale",
			paramgrid.Params("x"),
			paramgrid.Param("x", paramgrid.Values("1", "2")),
		),
	)

	assert.Equal(t, []string{"7*1", "7*2"}, log.all())
	assert.False(t, proto.dirty, "the prototype itself must stay untouched")
}

type skewed struct {
	log *runLog

	Flag bool   `param:""`
	Mode string `param:"[fast, slow]"`
}

func (s *skewed) TestIt(t *testing.T) {
	s.log.add("%v-%s", s.Flag, s.Mode)
}

type skipSlowWhenFlagged struct{}

func (skipSlowWhenFlagged) ShouldSkip(row paramgrid.ValuesView) bool {
	flag, _ := row.Get("Flag")
	mode, _ := row.Get("Mode")
	return flag == true && mode == "slow"
}

func TestRun_ValidatorPrunesCombinations(t *testing.T) {
	log := &runLog{}
	paramgrid.Run(t, &skewed{log: log},
		paramgrid.Validate(skipSlowWhenFlagged{}),
	)

	assert.Equal(t, []string{
		"false-fast", "false-slow", "true-fast",
	}, log.all())
}

func init() {
	paramgrid.RegisterProvider("ports", paramgrid.ValueFunc(
		func(paramgrid.ProviderContext) ([]any, error) {
			return []any{
				paramgrid.NamedValue{Name: "http", Value: 80},
				paramgrid.NamedValue{Name: "https", Value: 443},
			}, nil
		}))
}

type portSuite struct {
	log *runLog

	Port int `param:"provider=ports"`
}

func (s *portSuite) TestListen(t *testing.T) {
	s.log.add("%d", s.Port)
	c, ok := paramgrid.Current(t)
	require.True(t, ok)
	s.log.add("name=%s", c.Name)
}

func TestRun_NamedProviderTag(t *testing.T) {
	log := &runLog{}
	paramgrid.Run(t, &portSuite{log: log})

	assert.Equal(t, []string{
		"80", "name=TestListen[http]",
		"443", "name=TestListen[https]",
	}, log.all())
}

type multiMethodSuite struct {
	log *runLog

	Flag bool `param:""`
}

func (s *multiMethodSuite) TestAlpha(t *testing.T) { s.log.add("alpha:%v", s.Flag) }
func (s *multiMethodSuite) TestBeta(t *testing.T)  { s.log.add("beta:%v", s.Flag) }

func TestRun_ExpandsEveryTestMethod(t *testing.T) {
	log := &runLog{}
	paramgrid.Run(t, &multiMethodSuite{log: log})

	assert.Equal(t, []string{
		"alpha:false", "alpha:true",
		"beta:false", "beta:true",
	}, log.all())
}

type currentSuite struct{}

func (s *currentSuite) TestCurrent(t *testing.T, size int) {
	c, ok := paramgrid.Current(t)
	require.True(t, ok)
	assert.Equal(t, "TestCurrent", c.Method)
	v, ok := c.Param("size")
	require.True(t, ok)
	assert.Equal(t, size, v)
}

func TestCurrent_ExposesTheRunningCase(t *testing.T) {
	paramgrid.Run(t, &currentSuite{},
		paramgrid.Method("TestCurrent",
			paramgrid.Params("size"),
			paramgrid.Param("size", paramgrid.Values("1", "2")),
		),
	)

	_, ok := paramgrid.Current(t)
	assert.False(t, ok, "Current only reports inside an expanded case")
}

type namedRowSuite struct {
	log *runLog
}

func (s *namedRowSuite) TestNamed(t *testing.T, a int, b int) {
	c, ok := paramgrid.Current(t)
	require.True(t, ok)
	// Row declarations expose each filled parameter by its declared name.
	av, ok := c.Param("a")
	require.True(t, ok)
	assert.Equal(t, a, av)
	bv, ok := c.Param("b")
	require.True(t, ok)
	assert.Equal(t, b, bv)
	s.log.add("%s:%d+%d", c.Name, a, b)
}

func TestRun_NamedRows(t *testing.T) {
	log := &runLog{}
	paramgrid.Run(t, &namedRowSuite{log: log},
		paramgrid.Method("TestNamed",
			paramgrid.Params("a", "b"),
			paramgrid.Declare(paramgrid.NamedRows(
				paramgrid.Named("zeros", "{a: 0, b: 0}"),
				paramgrid.Row("{a: 1, b: 2}"),
			)),
		),
	)

	assert.Equal(t, []string{
		"TestNamed[zeros]:0+0",
		"TestNamed[{a: 1, b: 2}]:1+2",
	}, log.all())
}
