package event

import (
	"path"
	"regexp"
	"strings"
)

// Ext returns up to two trailing dot-suffixes of key, lower-cased, so compound
// names like data.csv.gz classify on the full ".csv.gz". Dotfiles and trailing
// dots yield no suffix.
func Ext(key string) string {
	base := path.Base(key)
	stem, e1 := splitSuffix(base)
	_, e2 := splitSuffix(stem)
	return strings.ToLower(e2 + e1)
}

func splitSuffix(name string) (stem, suffix string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	return name[:i], name[i:]
}

// SplitCompression strips a trailing compression suffix, returning the inner
// extension and a compression note for the fetch path.
func SplitCompression(ext string) (inner, compression string) {
	if strings.HasSuffix(ext, ".gz") {
		return strings.TrimSuffix(ext, ".gz"), "gz"
	}
	return ext, ""
}

// Rule reclassifies an extension from the full key. Rules run in order and
// the first non-empty answer wins.
type Rule func(key, ext string) string

var (
	hiveExtRe = regexp.MustCompile(`^\.c\d{3,5}$`)
	hiveKeyRe = regexp.MustCompile(`-c\d{3,5}$`)
)

// HivePartition recognizes the columnar part files Spark and Hive write
// without a real extension: .c### suffixes, -c##### and _0 key tails, and the
// .pq shorthand.
func HivePartition(key, ext string) string {
	if hiveExtRe.MatchString(ext) || hiveKeyRe.MatchString(key) ||
		strings.HasSuffix(key, "_0") || ext == ".pq" {
		return ".parquet"
	}
	return ""
}

// DefaultRules is the inference chain applied by Infer. Deployments with
// their own naming folklore can prepend rules at startup.
var DefaultRules = []Rule{HivePartition}

// Infer applies DefaultRules to (key, ext), falling back to ext unchanged.
func Infer(key, ext string) string {
	return InferWith(DefaultRules, key, ext)
}

// InferWith applies an explicit rule chain.
func InferWith(rules []Rule, key, ext string) string {
	for _, rule := range rules {
		if got := rule(key, ext); got != "" {
			return got
		}
	}
	return ext
}
