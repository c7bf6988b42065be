package models

// Supported ATS providers.
const (
	ATSGreenhouse      = "greenhouse"
	ATSLever           = "lever"
	ATSAshby           = "ashby"
	ATSSmartRecruiters = "smartrecruiters"
)

// ATSNames lists every supported provider tag.
var ATSNames = []string{ATSGreenhouse, ATSLever, ATSAshby, ATSSmartRecruiters}

// KnownATS reports whether tag names a supported provider.
func KnownATS(tag string) bool {
	for _, n := range ATSNames {
		if n == tag {
			return true
		}
	}
	return false
}

// Company is one registry entry. Identity is (ATS, Slug); the pipeline
// treats entries as read-only once enqueued.
type Company struct {
	ATS         string `json:"ats"`
	Slug        string `json:"slug"`
	DisplayName string `json:"name"`
}
