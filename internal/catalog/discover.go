// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/labctl/labctl/internal/log"
	"github.com/labctl/labctl/internal/pricing"
)

// categoryNames maps the numbered category directories to their short names.
// Directories outside this map fall back to the text after the first hyphen.
var categoryNames = map[string]string{
	"01-cicd":        "cicd",
	"02-iac":         "iac",
	"03-monitoring":  "monitoring",
	"04-security":    "security",
	"05-deployment":  "deployment",
	"06-integration": "integration",
}

var (
	titleRe     = regexp.MustCompile(`(?m)^#\s+(.+)`)
	objectiveRe = regexp.MustCompile(`(?s)##\s+Objective\s*\n(.+?)(\n##|\n\n|$)`)
	durationRe  = regexp.MustCompile(`(?i)(?:Time to Complete|Duration).*?(\d+)\s*minutes?`)
	prereqRe    = regexp.MustCompile(`(?s)##\s+Prerequisites\s*\n(.+?)(\n##|\n\n|$)`)
	bulletRe    = regexp.MustCompile(`[-*]\s+(.+)`)
)

// servicePatterns recognize AWS service mentions in guide prose.
var servicePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(CodePipeline|CodeBuild|CodeDeploy|CodeCommit)\b`),
	regexp.MustCompile(`(?i)\b(CloudFormation|CDK)\b`),
	regexp.MustCompile(`(?i)\b(CloudWatch|X-Ray|Config)\b`),
	regexp.MustCompile(`(?i)\b(IAM|Secrets Manager|Parameter Store)\b`),
	regexp.MustCompile(`(?i)\b(EC2|ECS|Lambda|API Gateway|RDS|S3|VPC)\b`),
	regexp.MustCompile(`(?i)\b(SNS|SQS|EventBridge|Step Functions)\b`),
	regexp.MustCompile(`(?i)\b(Auto Scaling|Load Balancer|ALB|NLB)\b`),
}

const defaultDuration = 60

// Discover walks the lab root for category directories (the NN-name pattern)
// and builds a catalog entry for every lab directory containing a
// lab-guide.md. The discovered catalog is persisted before returning.
func Discover(labDir string) (*Catalog, error) {
	c := &Catalog{Labs: map[string]Lab{}}

	categoryDirs, err := filepath.Glob(filepath.Join(labDir, "*-*"))
	if err != nil {
		return nil, err
	}

	for _, categoryDir := range categoryDirs {
		info, err := os.Stat(categoryDir)
		if err != nil || !info.IsDir() {
			continue
		}

		category := categoryName(filepath.Base(categoryDir))

		entries, err := os.ReadDir(categoryDir)
		if err != nil {
			log.WithError(err).Warnf("skipping category dir %s", categoryDir)
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			guide := filepath.Join(categoryDir, entry.Name(), "lab-guide.md")
			content, err := os.ReadFile(guide)
			if err != nil {
				continue
			}

			labID := category + "-" + entry.Name()
			relPath, _ := filepath.Rel(labDir, filepath.Join(categoryDir, entry.Name()))
			c.Labs[labID] = parseGuide(string(content), category, entry.Name(), relPath)
			log.Debugf("discovered lab: id=%s", labID)
		}
	}

	if err := c.Save(labDir); err != nil {
		return nil, err
	}

	return c, nil
}

// categoryName resolves a category directory name to its short form.
func categoryName(dir string) string {
	if name, ok := categoryNames[dir]; ok {
		return name
	}
	if _, after, found := strings.Cut(dir, "-"); found {
		return after
	}
	return dir
}

// parseGuide extracts lab metadata from guide markdown.
func parseGuide(content, category, dirName, relPath string) Lab {
	lab := Lab{
		Category:      category,
		Path:          relPath,
		Duration:      defaultDuration,
		Prerequisites: []string{},
		AWSServices:   []string{},
	}

	if m := titleRe.FindStringSubmatch(content); m != nil {
		lab.Name = strings.TrimSpace(m[1])
	} else {
		lab.Name = titleFromDirName(dirName)
	}

	if m := objectiveRe.FindStringSubmatch(content); m != nil {
		lab.Description = strings.TrimSpace(m[1])
	}

	if m := durationRe.FindStringSubmatch(content); m != nil {
		if minutes, err := strconv.Atoi(m[1]); err == nil {
			lab.Duration = minutes
		}
	}

	if m := prereqRe.FindStringSubmatch(content); m != nil {
		for _, bullet := range bulletRe.FindAllStringSubmatch(m[1], -1) {
			lab.Prerequisites = append(lab.Prerequisites, strings.TrimSpace(bullet[1]))
		}
	}

	lab.AWSServices = findServices(content)
	lab.EstimatedCost = pricing.EstimateStandard(lab.AWSServices, lab.Duration)
	lab.Difficulty = scoreDifficulty(content, lab.AWSServices, lab.Duration)

	return lab
}

// titleFromDirName turns "nested-stacks" into "Nested Stacks".
func titleFromDirName(dirName string) string {
	words := strings.Split(dirName, "-")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// findServices returns the sorted, deduplicated AWS service names mentioned
// in the guide.
func findServices(content string) []string {
	seen := map[string]string{}
	for _, pattern := range servicePatterns {
		for _, m := range pattern.FindAllStringSubmatch(content, -1) {
			// Dedupe case-insensitively but keep the first spelling seen.
			key := strings.ToUpper(m[1])
			if _, ok := seen[key]; !ok {
				seen[key] = m[1]
			}
		}
	}

	services := make([]string, 0, len(seen))
	for _, name := range seen {
		services = append(services, name)
	}
	sort.Strings(services)
	return services
}

// Difficulty keyword tables. Each hit shifts the score; the thresholds at the
// bottom of scoreDifficulty translate the total into a difficulty label.
var (
	advancedKeywords = []string{
		"advanced", "complex", "nested", "custom", "multi-tier", "enterprise",
		"production-grade", "scalable", "high-availability", "disaster recovery",
		"cross-region", "multi-account", "service mesh", "microservices",
		"kubernetes", "helm", "terraform modules", "custom resources",
	}
	intermediateKeywords = []string{
		"intermediate", "moderate", "integration", "automation", "pipeline",
		"deployment", "monitoring", "logging", "security", "networking",
		"load balancer", "auto scaling", "database", "caching",
	}
	beginnerKeywords = []string{
		"basic", "simple", "introduction", "getting started", "fundamentals",
		"hello world", "tutorial", "walkthrough", "first steps", "beginner",
	}
	complexServices = []string{
		"ECS", "EKS", "FARGATE", "SERVICE MESH", "APP MESH", "API GATEWAY",
		"STEP FUNCTIONS", "EVENTBRIDGE", "KINESIS", "EMR", "REDSHIFT",
		"ELASTICACHE", "DOCUMENTDB", "NEPTUNE", "TIMESTREAM",
	}
	intermediateServices = []string{
		"RDS", "DYNAMODB", "SQS", "SNS", "CODEPIPELINE", "CODEBUILD",
		"CODEDEPLOY", "CLOUDFORMATION", "CDK", "SYSTEMS MANAGER",
		"SECRETS MANAGER", "PARAMETER STORE", "CLOUDWATCH", "X-RAY",
	}
)

// scoreDifficulty grades a lab from its guide content, service mix and
// duration.
func scoreDifficulty(content string, services []string, durationMinutes int) string {
	score := 0
	lower := strings.ToLower(content)

	for _, kw := range advancedKeywords {
		if strings.Contains(lower, kw) {
			score += 3
		}
	}
	for _, kw := range intermediateKeywords {
		if strings.Contains(lower, kw) {
			score += 2
		}
	}
	for _, kw := range beginnerKeywords {
		if strings.Contains(lower, kw) {
			score--
		}
	}

	for _, service := range services {
		upper := strings.ToUpper(service)
		switch {
		case contains(complexServices, upper):
			score += 2
		case contains(intermediateServices, upper):
			score++
		}
	}

	switch {
	case durationMinutes > 180:
		score += 2
	case durationMinutes > 120:
		score++
	case durationMinutes < 60:
		score--
	}

	switch {
	case len(services) > 6:
		score += 2
	case len(services) > 3:
		score++
	}

	// Prerequisites that expect prior experience bump the score.
	if _, after, found := strings.Cut(lower, "prerequisite"); found {
		section := after
		if len(section) > 500 { //nolint:mnd
			section = section[:500]
		}
		for _, word := range []string{"experience", "knowledge", "familiar"} {
			if strings.Contains(section, word) {
				score++
				break
			}
		}
	}

	switch {
	case score >= 8: //nolint:mnd
		return "advanced"
	case score >= 4: //nolint:mnd
		return "intermediate"
	default:
		return "beginner"
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

