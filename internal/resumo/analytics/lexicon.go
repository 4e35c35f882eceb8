package analytics

// DefaultStopWords are function words ignored when ranking topics. Words of
// three characters or fewer are always ignored, so only longer ones need to
// be listed.
var DefaultStopWords = []string{
	// Spanish
	"algo", "algún", "alguna", "algunas", "alguno", "algunos", "ante", "antes",
	"aquí", "aunque", "bien", "cada", "casi", "como", "cómo", "contra",
	"cual", "cuál", "cuando", "cuándo", "desde", "después", "donde", "dónde",
	"durante", "ella", "ellas", "ellos", "entonces", "entre", "eran", "eres",
	"esas", "escribir", "eses", "esos", "esta", "está", "estaba", "estamos",
	"están", "estar", "estas", "estás", "este", "esto", "estos", "estoy",
	"fuera", "haber", "había", "hace", "hacer", "hacia", "hasta",
	"mismo", "misma", "mucho", "mucha", "muchos", "nada", "nadie",
	"nosotros", "nuestra", "nuestro", "otra", "otras", "otro", "otros",
	"para", "pero", "poco", "porque", "puede", "pues", "quien", "quién",
	"sido", "siempre", "sino", "sobre", "solo", "sólo", "somos", "también",
	"tanto", "tener", "tengo", "tiene", "tienen", "todas", "todo", "todos",
	"tras", "usted", "ustedes", "vamos", "ahora", "aquel", "bueno", "buena",
	"creo", "dice", "hola", "jaja", "jajaja", "jajajaja", "vale",
	// English
	"about", "after", "again", "also", "been", "before", "being", "could",
	"does", "doing", "each", "from", "have", "having", "here", "into", "just",
	"like", "more", "most", "much", "only", "other", "over", "really", "same",
	"some", "such", "than", "that", "their", "them", "then", "there", "these",
	"they", "this", "those", "through", "very", "want", "were", "what",
	"when", "where", "which", "while", "will", "with", "would", "your",
	"haha", "hahaha", "yeah",
}

// DefaultNegativeTerms is a small Spanish and English lexicon of negative
// expressions. Multi-word terms match consecutive tokens.
var DefaultNegativeTerms = []string{
	// Spanish
	"no", "mal", "malo", "mala", "odio", "horrible", "peor", "nunca",
	"triste", "molesta", "asco", "terrible", "basura", "fatal", "harto",
	"harta", "aburrido", "aburrida", "pésimo", "pésima", "ni modo",
	"qué pena", "que pena",
	// English
	"hate", "bad", "worst", "never", "awful", "sad", "annoying",
	"boring", "sucks",
}
