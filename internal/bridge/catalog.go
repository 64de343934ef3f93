package bridge

// Static product data served by the pricing, FAQ and feature tools. Selector
// misses fall back to a summary payload; the tools never fail on an
// unrecognized selector.

// PricingPlan is the static pricing payload for one plan.
type PricingPlan struct {
	Name     string   `json:"name"`
	Price    string   `json:"price"`
	Features []string `json:"features"`
}

var pricingPlans = map[string]PricingPlan{
	"starter": {
		Name:  "Starter",
		Price: "₹99/month",
		Features: []string{
			"50 leads/month",
			"5 email templates",
			"Basic analytics",
			"Email support",
		},
	},
	"pro": {
		Name:  "Pro",
		Price: "₹1,499/month",
		Features: []string{
			"2,000 leads/month",
			"Unlimited templates",
			"Advanced analytics",
			"Priority support",
			"AI email generation",
		},
	},
	"agency": {
		Name:  "Agency",
		Price: "₹3,999/month",
		Features: []string{
			"Unlimited leads",
			"White-label solution",
			"API access",
			"Team accounts",
			"Dedicated support",
		},
	},
}

const pricingSummary = "Starter ₹99/month, Pro ₹1,499/month (Most Popular), Agency ₹3,999/month. All plans include 7-day free trial, no setup fees."

// PricingFor returns the plan matching the selector, or the all-plans
// summary when the selector is absent or unrecognized.
func PricingFor(selector string) interface{} {
	if plan, ok := pricingPlans[selector]; ok {
		return plan
	}
	return pricingSummary
}

var faqTopics = map[string]string{
	"billing":  "You can change plans anytime with immediate effect and prorated billing. We accept all major credit cards. Annual billing saves 20%.",
	"features": "LeadGenLite includes AI lead generation, personalized email outreach, CRM, project management, invoicing, and support system - all in one platform.",
	"plans":    "Free trial available. Starter (₹99) for freelancers, Pro (₹1,499) for growing businesses, Agency (₹3,999) for teams. No setup fees.",
	"general":  "No credit card required for trial. Setup takes 2 minutes. Get first leads within 24 hours. Cancel anytime with no hidden costs.",
}

// FAQFor returns the FAQ text for a topic, falling back to the general topic.
func FAQFor(topic string) string {
	if text, ok := faqTopics[topic]; ok {
		return text
	}
	return faqTopics["general"]
}

var featureCategories = map[string]string{
	"lead_generation": "AI finds and scores leads from 110+ business categories with geographic targeting. 4 campaign modes: Location-based, Category-focused, Keyword search, Custom targeting.",
	"email":           "AI-powered personalized emails with batch generation, industry-specific templates, and automated outreach for higher conversion rates.",
	"crm":             "Complete lead-to-client conversion with relationship tracking, business profiles, and interaction management in one dashboard.",
	"invoicing":       "Professional invoicing with multiple templates, tax calculations, PDF generation, payment tracking, and status monitoring.",
	"all":             "Complete business platform: AI lead generation (110+ categories), personalized email outreach, CRM, project management, professional invoicing, and support system.",
}

// FeaturesFor returns the feature text for a category, falling back to the
// all-features summary.
func FeaturesFor(category string) string {
	if text, ok := featureCategories[category]; ok {
		return text
	}
	return featureCategories["all"]
}
