// Package classify scans document chunks for legally significant clause
// patterns using IQL (a semantic query language: "is this text an instance
// of clause type X" scored by a universal classifier) and aggregates the
// matches into per-document risk flags.
package classify

import "pathway-backend/models"

// Template is a fixed IQL query with its human-readable metadata.
type Template struct {
	Name        string
	Query       string
	Description string
	RiskLevel   models.RiskLevel
	Category    string
}

// Template categories.
const (
	CategoryCoolingOff        = "cooling_off"
	CategorySpecialConditions = "special_conditions"
	CategoryEncumbrances      = "encumbrances"
	CategoryCompliance        = "compliance"
	CategoryStrata            = "strata"
	CategoryRisk              = "risk"
	CategoryTitle             = "title"
	CategoryStandard          = "standard"
)

// Template names the classifier aggregation keys specific flags on.
const (
	TemplateCoolingOffWaiver    = "cooling_off_waiver"
	TemplateSection66WWaiver    = "section_66w_waiver"
	TemplateAsIsCondition       = "as_is_condition"
	TemplateEarlyReleaseDeposit = "early_release_deposit"
	TemplateNoFinalInspection   = "no_final_inspection"
	TemplateOwnerBuilder        = "owner_builder"
)

// The fixed catalogue of IQL templates for Australian property documents.
var allTemplates = []Template{
	// Cooling-off period.
	{
		Name:        TemplateCoolingOffWaiver,
		Query:       `{IS clause that "waives the purchaser cooling off period or statutory cooling off rights"}`,
		Description: "Detects clauses waiving statutory cooling-off rights (e.g., s.66W in Victoria)",
		RiskLevel:   models.RiskHigh,
		Category:    CategoryCoolingOff,
	},
	{
		Name:        "cooling_off_reduced",
		Query:       `{IS clause that "reduces or shortens the cooling off period"}`,
		Description: "Detects clauses reducing the standard cooling-off period",
		RiskLevel:   models.RiskMedium,
		Category:    CategoryCoolingOff,
	},
	{
		Name:        TemplateSection66WWaiver,
		Query:       `{IS clause that "references section 66W or waives cooling off rights under the Sale of Land Act"}`,
		Description: "Specific detection of Victorian s.66W cooling-off waiver",
		RiskLevel:   models.RiskHigh,
		Category:    CategoryCoolingOff,
	},

	// Special conditions.
	{
		Name:        "special_condition",
		Query:       `{IS clause called "special condition"}`,
		Description: "Identifies special conditions in contract",
		RiskLevel:   models.RiskInfo,
		Category:    CategorySpecialConditions,
	},
	{
		Name:        TemplateAsIsCondition,
		Query:       `{IS clause that "sells the property in its current condition or as-is where-is basis"}`,
		Description: "Detects as-is/where-is sale conditions",
		RiskLevel:   models.RiskHigh,
		Category:    CategorySpecialConditions,
	},
	{
		Name:        "subject_to_finance",
		Query:       `{IS clause that "makes the sale subject to the purchaser obtaining finance approval"}`,
		Description: "Finance approval condition",
		RiskLevel:   models.RiskInfo,
		Category:    CategorySpecialConditions,
	},
	{
		Name:        "subject_to_building_inspection",
		Query:       `{IS clause that "makes the sale subject to a satisfactory building or pest inspection"}`,
		Description: "Building inspection condition",
		RiskLevel:   models.RiskInfo,
		Category:    CategorySpecialConditions,
	},
	{
		Name:        TemplateEarlyReleaseDeposit,
		Query:       `{IS clause that "allows the deposit to be released to the vendor before settlement"}`,
		Description: "Early deposit release clause (risk if vendor defaults)",
		RiskLevel:   models.RiskHigh,
		Category:    CategorySpecialConditions,
	},
	{
		Name:        "sunset_clause",
		Query:       `{IS termination clause} AND {IS clause that "allows termination if settlement is not completed by a specific date"}`,
		Description: "Sunset/rescission clause for delayed settlement",
		RiskLevel:   models.RiskMedium,
		Category:    CategorySpecialConditions,
	},
	{
		Name:        "nomination_clause",
		Query:       `{IS clause entitling "purchaser"} AND {IS clause that "allows nomination of another party to complete the purchase"}`,
		Description: "Nomination rights clause",
		RiskLevel:   models.RiskInfo,
		Category:    CategorySpecialConditions,
	},

	// Encumbrances.
	{
		Name:        "easement_clause",
		Query:       `{IS clause that "discloses an easement or right of way affecting the property"}`,
		Description: "Detects easement disclosures",
		RiskLevel:   models.RiskInfo,
		Category:    CategoryEncumbrances,
	},
	{
		Name:        "restrictive_covenant",
		Query:       `{IS clause that "discloses a restrictive covenant limiting the use or development of the land"}`,
		Description: "Detects restrictive covenants that may limit development",
		RiskLevel:   models.RiskMedium,
		Category:    CategoryEncumbrances,
	},
	{
		Name:        "caveat",
		Query:       `{IS clause that "discloses a caveat or third party interest registered on the property title"}`,
		Description: "Detects caveats on title",
		RiskLevel:   models.RiskHigh,
		Category:    CategoryEncumbrances,
	},
	{
		Name:        "mortgage_encumbrance",
		Query:       `{IS clause that "discloses an existing mortgage or registered charge on the property"}`,
		Description: "Detects existing mortgages/charges",
		RiskLevel:   models.RiskInfo,
		Category:    CategoryEncumbrances,
	},
	{
		Name:        "development_restriction",
		Query:       `{IS clause that "restricts subdivision or multi-dwelling development on the property"}`,
		Description: "Detects covenants blocking subdivision or multi-dwelling",
		RiskLevel:   models.RiskHigh,
		Category:    CategoryEncumbrances,
	},

	// Building and compliance.
	{
		Name:        TemplateOwnerBuilder,
		Query:       `{IS clause that "discloses owner-builder works or states domestic building insurance was not required"}`,
		Description: "Detects owner-builder works (warranty implications)",
		RiskLevel:   models.RiskMedium,
		Category:    CategoryCompliance,
	},
	{
		Name:        "building_permit",
		Query:       `{IS clause that "references building permits or building approvals for works on the property"}`,
		Description: "Building permit disclosures",
		RiskLevel:   models.RiskInfo,
		Category:    CategoryCompliance,
	},
	{
		Name:        TemplateNoFinalInspection,
		Query:       `{IS clause that "states certificate of final inspection or occupancy permit was not issued"}`,
		Description: "Missing final inspection (potential illegal works)",
		RiskLevel:   models.RiskHigh,
		Category:    CategoryCompliance,
	},
	{
		Name:        "illegal_works",
		Query:       `{IS clause that "discloses unpermitted works or works done without council approval"}`,
		Description: "Disclosure of illegal/unpermitted works",
		RiskLevel:   models.RiskHigh,
		Category:    CategoryCompliance,
	},
	{
		Name:        "section_137b",
		Query:       `{IS clause that "references section 137B or defects report for owner-builder works"}`,
		Description: "Victorian s.137B owner-builder defect report requirement",
		RiskLevel:   models.RiskInfo,
		Category:    CategoryCompliance,
	},

	// Strata / owners corporation.
	{
		Name:        "special_levy",
		Query:       `{IS clause that "discloses a special levy or additional contribution required from owners"}`,
		Description: "Special levy disclosure or risk",
		RiskLevel:   models.RiskHigh,
		Category:    CategoryStrata,
	},
	{
		Name:        "strata_litigation",
		Query:       `{IS clause that "references VCAT or NCAT proceedings or legal action against the owners corporation"}`,
		Description: "Strata litigation or disputes",
		RiskLevel:   models.RiskHigh,
		Category:    CategoryStrata,
	},
	{
		Name:        "cladding_issue",
		Query:       `{IS clause that "discloses combustible cladding or external wall cladding issues"}`,
		Description: "Combustible cladding issues",
		RiskLevel:   models.RiskHigh,
		Category:    CategoryStrata,
	},
	{
		Name:        "pet_restrictions",
		Query:       `{IS clause that "prohibits or restricts keeping pets in the building"}`,
		Description: "Pet restriction by-laws",
		RiskLevel:   models.RiskInfo,
		Category:    CategoryStrata,
	},
	{
		Name:        "short_term_letting",
		Query:       `{IS clause that "prohibits short-term letting or Airbnb style rentals"}`,
		Description: "Short-term letting restrictions",
		RiskLevel:   models.RiskInfo,
		Category:    CategoryStrata,
	},

	// Compound risk detection using IQL operators.
	{
		Name:        "high_risk_clause",
		Query:       `{IS clause that "waives cooling off rights"} OR {IS clause that "sells property as-is"} OR {IS clause that "releases deposit to vendor before settlement"}`,
		Description: "Compound query for any high-risk clause",
		RiskLevel:   models.RiskHigh,
		Category:    CategoryRisk,
	},
	{
		Name:        "buyer_unfavorable",
		Query:       `{IS clause obligating "purchaser"} > {IS clause obligating "vendor"}`,
		Description: "Clauses disproportionately obligating buyer vs seller",
		RiskLevel:   models.RiskMedium,
		Category:    CategoryRisk,
	},

	// Title.
	{
		Name:        "title_mismatch",
		Query:       `{IS clause that "states vendor is not the registered proprietor"} OR {IS clause that "references a deceased estate or power of attorney sale"}`,
		Description: "Title/vendor mismatch disclosure",
		RiskLevel:   models.RiskMedium,
		Category:    CategoryTitle,
	},
	{
		Name:        "life_estate",
		Query:       `{IS clause that "discloses a life estate or life interest in the property"}`,
		Description: "Life estate interest (finance difficulties)",
		RiskLevel:   models.RiskHigh,
		Category:    CategoryTitle,
	},

	// Standard contract clauses via built-in classifier templates.
	{
		Name:        "indemnity",
		Query:       `{IS indemnity clause}`,
		Description: "Detects indemnity clauses",
		RiskLevel:   models.RiskMedium,
		Category:    CategoryStandard,
	},
	{
		Name:        "liability_limitation",
		Query:       `{IS liability limitation clause}`,
		Description: "Detects liability limitation clauses",
		RiskLevel:   models.RiskInfo,
		Category:    CategoryStandard,
	},
	{
		Name:        "termination",
		Query:       `{IS termination clause}`,
		Description: "Detects termination clauses",
		RiskLevel:   models.RiskInfo,
		Category:    CategoryStandard,
	},
	{
		Name:        "warranty",
		Query:       `{IS representation or warranty clause}`,
		Description: "Detects warranty and representation clauses",
		RiskLevel:   models.RiskInfo,
		Category:    CategoryStandard,
	},
}

// AllTemplates returns a copy of the full catalogue.
func AllTemplates() []Template {
	out := make([]Template, len(allTemplates))
	copy(out, allTemplates)
	return out
}

// ByCategory returns the templates in one category.
func ByCategory(category string) []Template {
	var out []Template
	for _, t := range allTemplates {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}

// HighRiskTemplates returns every HIGH-risk template.
func HighRiskTemplates() []Template {
	var out []Template
	for _, t := range allTemplates {
		if t.RiskLevel == models.RiskHigh {
			out = append(out, t)
		}
	}
	return out
}

// Section32Templates returns the set used for Victorian vendor statements.
func Section32Templates() []Template {
	return byCategories(CategoryCoolingOff, CategorySpecialConditions,
		CategoryEncumbrances, CategoryCompliance, CategoryTitle, CategoryRisk)
}

// ContractNSWTemplates returns the set for NSW contracts for sale. NSW
// contracts carry the same clause types as Section 32 statements.
func ContractNSWTemplates() []Template {
	return Section32Templates()
}

// StrataTemplates returns the set for strata reports and OC minutes.
func StrataTemplates() []Template {
	return ByCategory(CategoryStrata)
}

// TemplatesFor selects the template set for a document type. Unknown types
// get the full catalogue minus the strata-specific group.
func TemplatesFor(docType models.DocumentType) []Template {
	switch docType {
	case models.DocTypeSection32:
		return Section32Templates()
	case models.DocTypeContractNSW:
		return ContractNSWTemplates()
	case models.DocTypeStrataReport, models.DocTypeStrataAGMMinutes:
		return StrataTemplates()
	default:
		return byCategories(CategoryCoolingOff, CategorySpecialConditions,
			CategoryEncumbrances, CategoryCompliance, CategoryTitle,
			CategoryRisk, CategoryStandard)
	}
}

func byCategories(categories ...string) []Template {
	var out []Template
	for _, t := range allTemplates {
		for _, c := range categories {
			if t.Category == c {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
