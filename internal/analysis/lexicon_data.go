package analysis

// topicOrder fixes the order in which topics are reported.
var topicOrder = []string{
	"finance", "chores", "family", "work", "intimacy", "time", "health", "plans", "communication",
}

var topicKeywords = map[string][]string{
	"finance": {
		"money", "budget", "rent", "bill", "bills", "pay", "paid", "paying", "spend", "spent", "spending",
		"cost", "costs", "expensive", "debt", "loan", "savings", "save", "bank", "salary", "mortgage", "price",
		"credit", "card", "cash", "afford",
	},
	"chores": {
		"dishes", "laundry", "clean", "cleaning", "trash", "garbage", "vacuum", "cook", "cooking", "groceries",
		"grocery", "chores", "chore", "mess", "tidy", "bed", "kitchen",
	},
	"family": {
		"mom", "mother", "dad", "father", "parents", "kids", "kid", "children", "son", "daughter", "sister",
		"brother", "family", "in-laws", "grandma", "grandpa", "baby",
	},
	"work": {
		"work", "job", "boss", "office", "meeting", "overtime", "deadline", "shift", "career", "colleague",
		"coworker", "project", "promotion",
	},
	"intimacy": {
		"love", "kiss", "hug", "cuddle", "date", "romantic", "affection", "miss", "sex", "intimacy", "touch",
	},
	"time": {
		"late", "early", "tonight", "tomorrow", "weekend", "today", "yesterday", "schedule", "busy", "time",
		"waiting", "wait", "hours", "minutes",
	},
	"health": {
		"sick", "doctor", "tired", "exhausted", "sleep", "headache", "stress", "stressed", "gym", "health",
		"hospital", "medicine", "therapy",
	},
	"plans": {
		"vacation", "trip", "holiday", "dinner", "movie", "party", "plan", "plans", "travel", "wedding",
		"birthday", "anniversary", "restaurant",
	},
	"communication": {
		"listen", "listening", "talk", "talking", "ignore", "ignoring", "ignored", "text", "texted", "call",
		"called", "reply", "respond", "understand", "communicate", "conversation",
	},
}

// sentimentWeights assigns polarity to individual tokens.
var sentimentWeights = map[string]float64{
	// positive
	"love": 3, "loved": 3, "adore": 3, "amazing": 3, "wonderful": 3, "awesome": 3, "fantastic": 3,
	"great": 2.5, "happy": 2.5, "glad": 2, "thanks": 2, "thank": 2, "grateful": 2.5, "appreciate": 2.5,
	"good": 1.5, "nice": 1.5, "sweet": 2, "beautiful": 2.5, "proud": 2.5, "excited": 2, "fun": 2,
	"kind": 1.5, "calm": 1, "fine": 0.5, "okay": 0.3, "ok": 0.3, "sorry": 0.5, "better": 1.5, "yay": 2,
	"care": 1.5, "support": 1.5, "perfect": 3, "enjoy": 2, "enjoyed": 2, "haha": 1.5, "lol": 1.5,

	// negative
	"hate": -3, "hated": -3, "angry": -3, "furious": -3.5, "mad": -2.5, "upset": -2.5, "annoyed": -2,
	"annoying": -2, "awful": -3, "terrible": -3, "horrible": -3, "worst": -3.5, "stupid": -3, "idiot": -3.5,
	"useless": -3, "pathetic": -3, "disgusting": -3, "sick": -1.5, "tired": -1, "sad": -2, "hurt": -2.5,
	"lonely": -2, "disappointed": -2.5, "disappointing": -2.5, "unfair": -2, "selfish": -3, "lazy": -2.5,
	"liar": -3.5, "lie": -2, "lied": -2.5, "lying": -2.5, "blame": -2, "fault": -2, "ridiculous": -2.5,
	"shut": -1.5, "ignore": -1.5, "ignored": -2, "ignoring": -2, "bad": -2, "wrong": -1.5, "fight": -2,
	"yell": -2.5, "yelling": -2.5, "scream": -2.5, "screaming": -2.5, "cry": -2, "crying": -2,
	"jealous": -2, "stress": -1.5, "stressed": -1.5, "exhausted": -1.5, "done": -0.5, "ugh": -1.5,
	"whatever": -1, "rude": -2.5, "mean": -1, "crazy": -1.5, "sucks": -2.5, "damn": -2, "hell": -2,
}

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "don't": {}, "dont": {}, "doesn't": {}, "doesnt": {}, "didn't": {},
	"didnt": {}, "isn't": {}, "isnt": {}, "aren't": {}, "arent": {}, "wasn't": {}, "wasnt": {}, "can't": {},
	"cant": {}, "won't": {}, "wont": {}, "nothing": {}, "nobody": {}, "neither": {}, "nor": {},
}

var intensifiers = map[string]float64{
	"very": 1.5, "really": 1.4, "so": 1.3, "extremely": 1.8, "totally": 1.5, "absolutely": 1.6,
	"completely": 1.6, "super": 1.4, "incredibly": 1.7, "always": 1.3, "too": 1.2, "fucking": 1.8,
	"slightly": 0.6, "somewhat": 0.7, "kinda": 0.7, "little": 0.8,
}

var intentPhrases = []struct {
	intent  string
	phrases []string
}{
	{"apology", []string{"sorry", "apologize", "apologise", "my bad", "forgive me"}},
	{"gratitude", []string{"thank", "thanks", "appreciate", "grateful"}},
	{"complaint", []string{"you always", "you never", "sick of", "tired of", "fed up", "can't believe you", "why do you always", "not fair"}},
	{"request", []string{"please", "can you", "could you", "would you", "will you", "let's", "lets", "i need you to"}},
}

var questionWords = map[string]struct{}{
	"who": {}, "what": {}, "when": {}, "where": {}, "why": {}, "how": {}, "which": {}, "do": {}, "does": {},
	"did": {}, "is": {}, "are": {}, "can": {}, "could": {}, "should": {}, "would": {}, "will": {},
}

var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "morning": {}, "evening": {}, "hiya": {}, "yo": {},
}
