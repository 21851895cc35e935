package surveilans

import "regexp"

func getOrDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}

	return *s
}

func urlMatcher() func(s string) bool {
	urlPattern := `^https?://[^\s/$.?#].[^\s]*$`
	urlRegex := regexp.MustCompile(urlPattern)

	return func(s string) bool {
		return urlRegex.MatchString(s)
	}
}
