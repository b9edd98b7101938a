package savelead

import "crm-assistant/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"companyName"},
		Properties: map[string]validation.Property{
			"companyName": {
				Type:        "string",
				Description: "Name of the company to save",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(200),
			},
			"industry": {
				Type:        "string",
				Description: "Industry or sector",
			},
			"geography": {
				Type:        "string",
				Description: "Headquarters location",
			},
			"size": {
				Type:        "string",
				Description: "Employee headcount, e.g. 51-200 employees",
			},
			"website": {
				Type:        "string",
				Description: "Company website or domain",
			},
			"contacts": {
				Type:        "array",
				Description: "People to save with the company",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"name"},
					Properties: map[string]validation.Property{
						"name":  {Type: "string", Description: "Full name"},
						"title": {Type: "string", Description: "Job title"},
						"email": {Type: "string", Description: "Email address"},
					},
				},
			},
		},
	}
}
