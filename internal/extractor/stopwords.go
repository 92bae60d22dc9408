package extractor

var stopwords = toSet(
	"about", "above", "after", "again", "against", "all", "also", "and", "any",
	"are", "aren", "because", "been", "before", "being", "below", "between",
	"both", "but", "can", "cannot", "could", "couldn", "did", "didn", "does",
	"doesn", "doing", "don", "down", "during", "each", "else", "ever", "few",
	"for", "from", "further", "get", "got", "had", "hadn", "has", "hasn",
	"have", "haven", "having", "her", "here", "hers", "herself", "him",
	"himself", "his", "how", "however", "http", "https", "into", "isn", "its",
	"itself", "just", "let", "like", "more", "most", "mustn", "myself", "nor",
	"not", "now", "off", "once", "one", "only", "other", "otherwise", "ought",
	"our", "ours", "ourselves", "out", "over", "own", "really", "same", "shall",
	"shan", "she", "should", "shouldn", "since", "some", "such", "than", "that",
	"the", "their", "theirs", "them", "themselves", "then", "there", "these",
	"they", "this", "those", "through", "too", "under", "until", "very", "was",
	"wasn", "were", "weren", "what", "when", "where", "which", "while", "who",
	"whom", "why", "will", "with", "won", "would", "wouldn", "www", "you",
	"your", "yours", "yourself", "yourselves", "com", "amp",
)

func toSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
