// Package normalize maps free-text skill and technology terms onto one
// canonical spelling each, so counts line up across tens of thousands of
// postings. The mapping is pure and total: every non-empty input yields
// exactly one canonical term.
package normalize

import (
	"sort"
	"strings"
)

// techStackMappings maps technology variants to canonical forms.
var techStackMappings = map[string]string{
	// JavaScript ecosystem
	"js":         "javascript",
	"ts":         "typescript",
	"node":       "nodejs",
	"node.js":    "nodejs",
	"react.js":   "react",
	"reactjs":    "react",
	"vue.js":     "vue",
	"vuejs":      "vue",
	"angular.js": "angular",
	"angularjs":  "angular",
	"next.js":    "nextjs",
	"nuxt.js":    "nuxtjs",
	"express.js": "express",
	"expressjs":  "express",
	"nest.js":    "nestjs",

	// Python ecosystem
	"python3":               "python",
	"py":                    "python",
	"django rest framework": "django",
	"drf":                   "django",
	"fast api":              "fastapi",
	"torch":                 "pytorch",
	"tensor flow":           "tensorflow",
	"tf":                    "tensorflow",
	"scikit-learn":          "sklearn",
	"scikit learn":          "sklearn",

	// Databases
	"postgres":       "postgresql",
	"psql":           "postgresql",
	"mongo":          "mongodb",
	"mongo db":       "mongodb",
	"maria db":       "mariadb",
	"elastic search": "elasticsearch",
	"elastic":        "elasticsearch",
	"dynamo db":      "dynamodb",
	"cockroach db":   "cockroachdb",

	// Cloud providers
	"amazon web services":   "aws",
	"amazon aws":            "aws",
	"google cloud platform": "gcp",
	"google cloud":          "gcp",
	"microsoft azure":       "azure",

	// DevOps / infra
	"k8s":            "kubernetes",
	"kube":           "kubernetes",
	"github actions": "github-actions",
	"gitlab ci":      "gitlab-ci",
	"circle ci":      "circleci",

	// Data tools
	"apache spark":    "spark",
	"pyspark":         "spark",
	"apache kafka":    "kafka",
	"apache airflow":  "airflow",
	"apache flink":    "flink",
	"data build tool": "dbt",
	"power bi":        "powerbi",

	// Languages
	"golang":        "go",
	"c++":           "cpp",
	"c plus plus":   "cpp",
	"c#":            "csharp",
	"c sharp":       "csharp",
	".net":          "dotnet",
	"ruby on rails": "rails",
	"ror":           "rails",

	// AI / ML
	"machine learning":            "ml",
	"deep learning":               "deep-learning",
	"natural language processing": "nlp",
	"computer vision":             "cv",
	"large language models":       "llm",
	"llms":                        "llm",
	"generative ai":               "genai",
	"gen ai":                      "genai",
	"hugging face":                "huggingface",
}

// skillMappings maps skill variants to canonical forms.
var skillMappings = map[string]string{
	// Soft skills
	"communication skills":           "communication",
	"written communication":          "communication",
	"verbal communication":           "communication",
	"problem solving":                "problem-solving",
	"problem-solving skills":         "problem-solving",
	"critical thinking":              "critical-thinking",
	"team work":                      "teamwork",
	"team player":                    "teamwork",
	"cross-functional collaboration": "cross-functional",
	"cross functional":               "cross-functional",
	"leadership skills":              "leadership",
	"project management":             "project-management",
	"time management":                "time-management",
	"attention to detail":            "detail-oriented",

	// Technical skills
	"rest api":                       "rest-apis",
	"restful api":                    "rest-apis",
	"restful apis":                   "rest-apis",
	"microservices architecture":     "microservices",
	"distributed systems":            "distributed-systems",
	"system design":                  "system-design",
	"data structures":                "data-structures",
	"data structures and algorithms": "dsa",
	"object oriented programming":    "oop",
	"object-oriented programming":    "oop",
	"test driven development":        "tdd",
	"test-driven development":        "tdd",
	"continuous integration":         "ci-cd",
	"continuous deployment":          "ci-cd",
	"ci/cd":                          "ci-cd",
	"cicd":                           "ci-cd",
	"agile methodology":              "agile",
	"agile development":              "agile",

	// Domain expertise
	"machine learning":             "machine-learning",
	"data analysis":                "data-analysis",
	"data analytics":               "data-analysis",
	"business intelligence":        "bi",
	"dev ops":                      "devops",
	"site reliability engineering": "sre",
	"cloud computing":              "cloud",
	"cloud infrastructure":         "cloud",
}

// Term lowercases and trims a raw term, then resolves it through the
// mapping table; unmapped terms are their own canonical form. An empty
// (or all-whitespace) input yields "".
func Term(raw string, mappings map[string]string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if cleaned == "" {
		return ""
	}
	if canonical, ok := mappings[cleaned]; ok {
		return canonical
	}
	return cleaned
}

// TechStack normalizes a technology list into a deduplicated,
// lexicographically sorted set of canonical terms.
func TechStack(terms []string) []string {
	return normalizeSet(terms, techStackMappings)
}

// Skills normalizes a skill list into a deduplicated, sorted set.
func Skills(terms []string) []string {
	return normalizeSet(terms, skillMappings)
}

func normalizeSet(terms []string, mappings map[string]string) []string {
	if len(terms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if canonical := Term(t, mappings); canonical != "" {
			seen[canonical] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for canonical := range seen {
		out = append(out, canonical)
	}
	sort.Strings(out)
	return out
}
