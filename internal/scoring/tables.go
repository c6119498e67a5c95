package scoring

// A keyword adds weight points when present in notification text. Within
// one category only the highest-weight match counts.
type keyword struct {
	term   string
	weight float64
}

type category struct {
	name  string
	words []keyword
}

// bestMatch returns the highest-weight keyword present in text. Ties go
// to the first listed keyword so factor output stays stable.
func (c category) bestMatch(text string) (float64, string) {
	best, term := 0.0, ""
	for _, k := range c.words {
		if k.weight > best && contains(text, k.term) {
			best, term = k.weight, k.term
		}
	}
	return best, term
}

// categories in fixed evaluation order; the factor list follows it.
var categories = []category{
	{name: "urgency", words: []keyword{
		{"critical", 10},
		{"urgent", 10},
		{"emergency", 10},
		{"immediately", 8},
		{"asap", 8},
		{"now", 7},
		{"expire", 8},
		{"expiring", 8},
		{"deadline", 7},
		{"overdue", 8},
		{"final notice", 9},
		{"last chance", 8},
		{"action required", 7},
		{"attention required", 7},
		{"time sensitive", 8},
	}},
	{name: "financial", words: []keyword{
		{"payment", 5},
		{"charge", 5},
		{"transaction", 5},
		{"withdraw", 6},
		{"withdrawal", 6},
		{"deposit", 4},
		{"overdrawn", 9},
		{"declined", 8},
		{"fraud", 10},
		{"suspicious", 9},
		{"approved", 3},
		{"large purchase", 6},
		{"refund", 5},
		{"balance", 4},
		{"overdraft", 9},
	}},
	{name: "security", words: []keyword{
		{"stranger", 8},
		{"motion", 3},
		{"detected", 4},
		{"alert", 6},
		{"warning", 7},
		{"alarm", 9},
		{"break", 9},
		{"unauthorized", 9},
		{"intruder", 10},
		{"breach", 10},
		{"locked", 5},
		{"unlocked", 6},
		{"door", 4},
		{"window", 4},
	}},
	{name: "medical", words: []keyword{
		{"appointment", 6},
		{"visit", 5},
		{"medical", 6},
		{"doctor", 6},
		{"prescription", 7},
		{"refill", 7},
		{"results", 8},
		{"video visit", 8},
		{"reminder", 5},
		{"health", 5},
		{"test", 6},
		{"vaccine", 6},
		{"medication", 7},
	}},
	{name: "work", words: []keyword{
		{"meeting", 5},
		{"deadline", 7},
		{"review", 4},
		{"approval", 6},
		{"expense", 5},
		{"report", 4},
		{"submitted", 4},
		{"onedrive", 7},
		{"deletion", 9},
		{"project", 5},
		{"task", 4},
		{"assignment", 5},
		{"due", 6},
	}},
	{name: "communication", words: []keyword{
		{"call", 4},
		{"message", 3},
		{"reply", 4},
		{"respond", 5},
		{"waiting", 4},
		{"missed", 5},
		{"voicemail", 4},
		{"chat", 3},
	}},
}

// AppWeight scales the keyword subtotal for apps with known signal value.
// Matching is by substring on the lowercased identifier; the first entry
// that matches wins.
type AppWeight struct {
	Match  string
	Weight float64
}

func defaultAppWeights() []AppWeight {
	return []AppWeight{
		{"passbook", 1.5},
		{"wallet", 1.5},
		{"batterycam", 1.4},
		{"ring", 1.4},
		{"mobilesms", 1.3},
		{"teams", 1.2},
		{"slack", 1.2},
		{"ical", 1.2},
		{"reminders", 1.2},
		{"mail", 1.1},
		{"outlook", 1.1},
		{"eero", 0.8},
		{"news", 0.7},
		{"spotify", 0.6},
	}
}

// responseWords next to a question mark indicate the notification is
// waiting on the user.
var responseWords = []string{"confirm", "verify", "approve", "reply"}
