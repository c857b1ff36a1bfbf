package registry

import (
	"strings"

	"github.com/tidwall/gjson"

	"trialmetrics/domain/trial"
)

// ParseSummary flattens one ClinicalTrials.gov v2 study record.
//
// Phases are joined with "," and default to "N/A" when the design module
// lists none. The site count is the number of listed locations.
func ParseSummary(study gjson.Result) trial.Summary {
	p := study.Get("protocolSection")

	phase := "N/A"
	if phases := p.Get("designModule.phases"); phases.Exists() {
		phase = strings.Join(stringsOf(phases), ",")
	}

	var interventions []string
	p.Get("armsInterventionsModule.interventions.#.name").ForEach(func(_, v gjson.Result) bool {
		interventions = append(interventions, v.String())
		return true
	})

	return trial.Summary{
		NCTID:            p.Get("identificationModule.nctId").String(),
		Title:            p.Get("identificationModule.briefTitle").String(),
		Phase:            phase,
		Status:           trial.Status(p.Get("statusModule.overallStatus").String()),
		EnrollmentTarget: int(p.Get("designModule.enrollmentInfo.count").Int()),
		EnrollmentType:   trial.EnrollmentType(p.Get("designModule.enrollmentInfo.type").String()),
		StartDate:        p.Get("statusModule.startDateStruct.date").String(),
		CompletionDate:   p.Get("statusModule.primaryCompletionDateStruct.date").String(),
		Sponsor:          p.Get("sponsorCollaboratorsModule.leadSponsor.name").String(),
		Conditions:       stringsOf(p.Get("conditionsModule.conditions")),
		Interventions:    interventions,
		SitesCount:       len(p.Get("contactsLocationsModule.locations").Array()),
	}
}

// ParseStudy parses a single study document.
func ParseStudy(raw []byte) trial.Summary {
	return ParseSummary(gjson.ParseBytes(raw))
}

func stringsOf(arr gjson.Result) []string {
	var out []string
	for _, v := range arr.Array() {
		out = append(out, v.String())
	}
	return out
}
