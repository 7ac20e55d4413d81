// cleaner/phone.go
package cleaner

import (
	"fmt"

	"github.com/gewnthar/projectscraper/models"
	"github.com/gewnthar/projectscraper/utils"
)

// FormatPhone renders a phone number in a canonical regional pattern based
// on its digit count. It is total: anything it cannot place becomes
// "Not provided".
//
//	10 digits             XXX-XXX-XXXX
//	11 digits, leading 1  XXX-XXX-XXXX (country code dropped)
//	12 digits, leading 966 +966-XX-XXXXXXX
//	11-15 digits          +CC-XXX-XXX-XXXX (CC is everything before the last 10)
//	8-9 digits            XXX-XXX-XX[X]
func FormatPhone(raw string) string {
	d := utils.DigitsOnly(raw)
	n := len(d)

	switch {
	case n == 10:
		return fmt.Sprintf("%s-%s-%s", d[:3], d[3:6], d[6:])
	case n == 11 && d[0] == '1':
		return fmt.Sprintf("%s-%s-%s", d[1:4], d[4:7], d[7:])
	case n == 12 && d[:3] == "966":
		return fmt.Sprintf("+%s-%s-%s", d[:3], d[3:5], d[5:])
	case n > 10 && n <= 15:
		cc, core := d[:n-10], d[n-10:]
		return fmt.Sprintf("+%s-%s-%s-%s", cc, core[:3], core[3:6], core[6:])
	case n >= 8 && n < 10:
		return fmt.Sprintf("%s-%s-%s", d[:3], d[3:6], d[6:])
	default:
		return models.DefaultMobile
	}
}
