// cleaner/project_type.go
package cleaner

import (
	"strings"

	"github.com/gewnthar/projectscraper/models"
	"github.com/gewnthar/projectscraper/utils"
)

// typeRule maps any of its keywords to a canonical category.
type typeRule struct {
	keywords []string
	category string
}

// typeRules are matched in declared order, first keyword hit wins. "ui",
// "ux" and "graphic" come before "design" so every canonical category maps
// to itself.
var typeRules = []typeRule{
	{[]string{"web", "website"}, "Web Development"},
	{[]string{"app", "mobile", "android", "ios"}, "Mobile App"},
	{[]string{"software", "application"}, "Software Development"},
	{[]string{"ui", "ux"}, "UI/UX Design"},
	{[]string{"graphic"}, "Graphic Design"},
	{[]string{"design"}, "Design"},
	{[]string{"car", "auto", "vehicle"}, "Automotive"},
	{[]string{"portfolio"}, "Portfolio"},
}

// StandardizeProjectType maps free text to a canonical category by
// case-insensitive substring match. Unmatched text is title-cased; empty
// text becomes "Miscellaneous".
func StandardizeProjectType(projectType string) string {
	t := strings.TrimSpace(projectType)
	if t == "" {
		return models.DefaultType
	}
	lower := strings.ToLower(t)
	for _, rule := range typeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return utils.TitleCase(lower)
}
