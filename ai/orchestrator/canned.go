package orchestrator

import (
	"math/rand"
	"strings"
)

// Canned responses for the short-circuit stages. These answer without
// touching the store or any provider.

var identityQueries = map[string]string{
	"who are you":                      "I'm Sagely, a learning assistant. Ask me a question or teach me a fact.",
	"what are you":                     "I'm Sagely, a learning assistant. Ask me a question or teach me a fact.",
	"what is your name":                "My name is Sagely.",
	"what's your name":                 "My name is Sagely.",
	"what can you do":                  "I answer questions, learn facts you teach me, and get better from your feedback.",
	"what do you do":                   "I answer questions, learn facts you teach me, and get better from your feedback.",
	"are you a robot":                  "I'm a program, so in a sense, yes.",
	"are you human":                    "No, I'm a program.",
	"how do you work":                  "I look up what I've learned, and when I don't know something I search for an answer and remember it.",
	"who made you":                     "I was built as an open source learning assistant.",
	"what is sagely":                   "Sagely is a learning assistant that answers questions and learns from you.",
	"what is the meaning of your name": "Sagely, as in wise. Aspirational, mostly.",
}

var greetings = []string{
	"Hello! Ask me anything, or teach me something new.",
	"Hi there! What would you like to know?",
	"Hey! I'm listening.",
	"Hello! How can I help?",
}

var thanksReplies = []string{
	"You're welcome!",
	"Any time!",
	"Glad I could help.",
}

var systemInfoQueries = map[string]bool{
	"what version are you":  true,
	"what version is this":  true,
	"which version are you": true,
	"version":               true,
	"system info":           true,
	"system information":    true,
	"what is your version":  true,
}

// programmingHelp covers common programming questions with direct answers.
// Keyed on the significant phrase; matched by substring.
var programmingHelp = []struct {
	phrase string
	answer string
}{
	{"sort a slice in go", "Use sort.Slice: sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })."},
	{"reverse a string in go", "Convert to a []rune, swap from both ends, and convert back to string."},
	{"read a file in go", "os.ReadFile(path) returns the whole file as a []byte in one call."},
	{"handle errors in go", "Return error as the last value and check it at every call site: if err != nil { return err }."},
	{"what is a goroutine", "A goroutine is a lightweight thread managed by the Go runtime; start one with the go keyword."},
	{"what is a channel in go", "A channel is a typed conduit for sending values between goroutines; make one with make(chan T)."},
	{"difference between array and slice", "An array has a fixed length that is part of its type; a slice is a dynamic view over an array."},
}

// directFacts is a tiny built-in factual table consulted before the
// knowledge base so trivially constant answers never hit storage.
var directFacts = map[string]string{
	"how many days are in a week":      "There are 7 days in a week.",
	"how many hours are in a day":      "There are 24 hours in a day.",
	"how many minutes are in an hour":  "There are 60 minutes in an hour.",
	"how many seconds are in a minute": "There are 60 seconds in a minute.",
	"how many months are in a year":    "There are 12 months in a year.",
	"how many days are in a year":      "A common year has 365 days; a leap year has 366.",
}

func identityAnswer(query string) (string, bool) {
	answer, ok := identityQueries[query]
	return answer, ok
}

func greetingAnswer(query string) string {
	if strings.HasPrefix(query, "thank") {
		return thanksReplies[rand.Intn(len(thanksReplies))]
	}
	return greetings[rand.Intn(len(greetings))]
}

func systemInfoQuery(query string) bool {
	return systemInfoQueries[query]
}

func programmingAnswer(query string) (string, bool) {
	for _, ph := range programmingHelp {
		if strings.Contains(query, ph.phrase) {
			return ph.answer, true
		}
	}
	return "", false
}

func directFactAnswer(query string) (string, bool) {
	answer, ok := directFacts[query]
	return answer, ok
}
