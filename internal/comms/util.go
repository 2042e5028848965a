package comms

import (
	"strings"

	"github.com/google/shlex"
)

// placeholderTopics picks the "please wait" text shown while a chat
// invocation runs. First match wins.
var placeholderTopics = []struct {
	keywords []string
	text     string
}{
	{[]string{"eks", "kubernetes", "cluster"}, "🔍 Querying EKS clusters..."},
	{[]string{"ec2", "instance"}, "🖥️ Querying EC2 instances..."},
	{[]string{"rds", "database"}, "🗄️ Querying RDS databases..."},
	{[]string{"lambda", "function"}, "⚡ Querying Lambda functions..."},
	{[]string{"s3", "bucket", "storage"}, "🪣 Querying S3 storage..."},
}

const defaultPlaceholder = "🤔 Thinking..."

// PlaceholderFor returns the progress text for a chat message.
func PlaceholderFor(message string) string {
	lower := strings.ToLower(message)
	for _, topic := range placeholderTopics {
		for _, kw := range topic.keywords {
			if strings.Contains(lower, kw) {
				return topic.text
			}
		}
	}
	return defaultPlaceholder
}

// SplitArgs splits a command line shell-style, honoring quotes. Unbalanced
// quoting falls back to a plain whitespace split.
func SplitArgs(line string) []string {
	args, err := shlex.Split(line)
	if err != nil {
		return strings.Fields(line)
	}
	return args
}

// singleShotPrefix extracts the arguments of an idle-mode "q <args>" message.
func singleShotPrefix(text string) (string, bool) {
	if len(text) < 2 || !strings.EqualFold(text[:2], "q ") {
		return "", false
	}
	return strings.TrimSpace(text[2:]), true
}

// parseCommand splits "/cmd@bot rest" into "/cmd" and "rest".
func parseCommand(text string) (cmd, rest string) {
	text = strings.TrimSpace(text)
	cmd, rest, _ = strings.Cut(text, " ")
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}

// fenced wraps text in a code block.
func fenced(title, body string) string {
	return title + "\n```\n" + body + "\n```"
}
