package debate

import (
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// dueParser is the package-wide natural-language parser used by the default
// Engine, per SPEC_FULL.md §4.8. It is built once since when.Parser is safe
// for concurrent use and its rule set never changes per run.
var dueParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseDueOverride resolves a free-form phrase like "next Friday" or "in 3
// days" against now, returning the matched time and whether anything parsed.
// Overrides that don't parse fall back to the fixed offsets in buildActions.
func ParseDueOverride(phrase string, now time.Time) (time.Time, bool) {
	result, err := dueParser.Parse(phrase, now)
	if err != nil || result == nil {
		return time.Time{}, false
	}
	return result.Time, true
}
