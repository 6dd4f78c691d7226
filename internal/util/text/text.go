package text

import (
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// AvailableMapKeys renders the sorted keys of a plugin/emitter registry as a
// quoted, comma separated list for help and error messages.
func AvailableMapKeys[V any](m map[string]V) string {
	avail := make([]string, 0, len(m))
	for k := range m {
		avail = append(avail, "'"+k+"'")
	}
	sort.Strings(avail)
	return strings.Join(avail, ", ")
}

func Commify(inVal int) string {
	return humanize.Comma(int64(inVal))
}

func Commify64(inVal int64) string {
	return humanize.Comma(inVal)
}

// Bytes renders a byte count in binary units, e.g. "1.5 MiB".
func Bytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}
