package service

import (
	"strings"

	"github.com/unclebandit/partnerline/internal/model"
)

// Tokens lists every placeholder Render understands.
var Tokens = []string{"{{first_name}}", "{{last_name}}", "{{name}}", "{{company}}", "{{region}}", "{{tsd}}"}

// Render substitutes partner fields into template in a single pass. Unknown
// tokens are left as written; missing fields become empty strings. Substituted
// text is never scanned again, so a partner whose name contains "{{company}}"
// renders literally.
func Render(template string, p *model.Partner) string {
	if p == nil {
		p = &model.Partner{}
	}
	r := strings.NewReplacer(
		"{{first_name}}", p.FirstName,
		"{{last_name}}", p.LastName,
		"{{name}}", p.FullName(),
		"{{company}}", p.Company,
		"{{region}}", p.RegionName,
		"{{tsd}}", p.TSDName,
	)
	return r.Replace(template)
}
