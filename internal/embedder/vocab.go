package embedder

// Curated vocabularies used by the local embedding synthesizer. Terms that
// recur across a portfolio corpus (stack names, engineering vocabulary)
// carry more retrieval signal than ordinary prose, so they get elevated
// weight in the lexical band and dedicated scoring in the semantic band.

// technicalTerms are stack and tooling names whose occurrence doubles a
// word's lexical weight.
var technicalTerms = map[string]struct{}{
	"javascript": {}, "typescript": {}, "react": {}, "node": {}, "python": {},
	"java": {}, "go": {}, "rust": {}, "api": {}, "rest": {}, "graphql": {},
	"database": {}, "sql": {}, "nosql": {}, "mongodb": {}, "postgresql": {},
	"aws": {}, "azure": {}, "gcp": {}, "docker": {}, "kubernetes": {},
	"microservices": {}, "serverless": {}, "ai": {}, "ml": {}, "llm": {},
	"nlp": {}, "computer": {}, "vision": {}, "tensorflow": {}, "pytorch": {},
	"algorithm": {}, "datastructure": {}, "optimization": {},
	"performance": {}, "scalability": {}, "frontend": {}, "backend": {},
	"fullstack": {}, "devops": {}, "cicd": {}, "git": {}, "github": {},
	"html": {}, "css": {}, "sass": {}, "tailwind": {}, "bootstrap": {},
	"webpack": {}, "vite": {}, "rollup": {},
}

// importantTerms are general professional vocabulary that also earns the
// elevated lexical weight.
var importantTerms = map[string]struct{}{
	"experience": {}, "project": {}, "development": {}, "engineering": {},
	"architecture": {}, "leadership": {}, "management": {}, "team": {},
	"collaboration": {}, "innovation": {}, "solution": {}, "problem": {},
	"design": {}, "implementation": {}, "optimization": {}, "performance": {},
	"scalable": {}, "efficient": {}, "robust": {}, "reliable": {},
	"education": {}, "degree": {}, "certification": {}, "award": {},
	"achievement": {},
}

// domainVocabulary names a topical domain and the words that indicate it.
// Each domain contributes one dimension to the semantic band.
type domainVocabulary struct {
	// name identifies the domain (used only for documentation/debugging).
	name string
	// words are substring-matched against the lowercased text.
	words []string
}

// domainVocabularies is the ordered list of scored domains. Order is part
// of the embedding layout — changing it re-maps semantic dimensions and
// invalidates stored vectors.
var domainVocabularies = []domainVocabulary{
	{"web", []string{"web", "frontend", "backend", "html", "css", "javascript", "react", "vue", "angular"}},
	{"data", []string{"data", "analytics", "machine", "learning", "ai", "statistics", "visualization"}},
	{"cloud", []string{"aws", "azure", "gcp", "cloud", "serverless", "kubernetes", "docker"}},
	{"mobile", []string{"mobile", "ios", "android", "flutter", "react-native", "swift", "kotlin"}},
	{"database", []string{"database", "sql", "nosql", "mongodb", "postgresql", "mysql", "redis"}},
}

// positiveIndicators and negativeIndicators feed the sentiment features of
// the semantic band.
var positiveIndicators = []string{
	"excellent", "outstanding", "successful", "efficient", "optimized",
	"improved", "innovative",
}

var negativeIndicators = []string{
	"problem", "issue", "difficulty", "challenge", "error", "bug",
}

// professionalTerms feed the professionalism feature of the semantic band.
var professionalTerms = []string{
	"experience", "skills", "project", "team", "leadership", "management",
}

// isTechnicalTerm reports whether word is in the technical vocabulary.
func isTechnicalTerm(word string) bool {
	_, ok := technicalTerms[word]
	return ok
}

// isImportantTerm reports whether word is in the general important vocabulary.
func isImportantTerm(word string) bool {
	_, ok := importantTerms[word]
	return ok
}
