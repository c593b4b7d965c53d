package wordcount

import (
	"strconv"
	"strings"
	"unicode"

	"DistCount/internal/types"
)

// Mapper turns one input file's contents into intermediate records.
type Mapper interface {
	Map(name, contents string) ([]types.KeyValue, error)
}

// Reducer folds all values observed for one key into a single output value.
type Reducer interface {
	Reduce(key string, values []string) (string, error)
}

// WordCount implements both sides of the word-count application: the mapper
// emits ("word", "1") per occurrence, the reducer counts the occurrences.
type WordCount struct{}

func New() *WordCount {
	return &WordCount{}
}

func (wc *WordCount) Map(name, contents string) ([]types.KeyValue, error) {
	words := Tokenize(contents)
	records := make([]types.KeyValue, 0, len(words))
	for _, w := range words {
		records = append(records, types.KeyValue{Key: w, Value: "1"})
	}
	return records, nil
}

func (wc *WordCount) Reduce(key string, values []string) (string, error) {
	return strconv.Itoa(len(values)), nil
}

// Tokenize splits text into lowercased words. Words are runs of letters,
// digits and apostrophes; surrounding punctuation is stripped and empty
// tokens are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})

	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.ToLower(strings.Trim(f, "'"))
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}
