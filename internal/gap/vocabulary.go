package gap

// DefaultVocabulary is used when no technical terms are configured. Entries are matched as
// substrings, so short or common fragments ("go", "api", "rest", "git") are left out.
var DefaultVocabulary = []string{
	"python", "java", "javascript", "typescript", "golang", "kotlin", "swift", "ruby", "php",
	"sql", "nosql", "postgresql", "postgres", "mysql", "mongodb", "redis", "elasticsearch",
	"kafka", "rabbitmq", "react", "angular", "vue", "svelte", "nodejs", "node.js", "django",
	"flask", "fastapi", "spring", "docker", "kubernetes", "terraform", "ansible", "jenkins",
	"ci/cd", "aws", "azure", "gcp", "linux", "github", "gitlab", "graphql", "grpc",
	"microservices", "devops", "html", "css", "machine learning", "deep learning", "tensorflow",
	"pytorch", "pandas", "numpy", "spark", "hadoop", "airflow", "etl", "nlp", "llm",
}
