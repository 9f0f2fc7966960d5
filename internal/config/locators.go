// File: internal/config/locators.go
package config

import "github.com/xkilldash9x/svccheck/api/schemas"

// LocatorsConfig holds the strategy for every control the workflow touches.
// The remote page changes without notice, so every entry can be overridden from
// YAML; sections left empty fall back to DefaultLocators.
type LocatorsConfig struct {
	Popups          schemas.LocatorStrategy `mapstructure:"popups" yaml:"popups"`
	Input           schemas.LocatorStrategy `mapstructure:"input" yaml:"input"`
	Submit          schemas.LocatorStrategy `mapstructure:"submit" yaml:"submit"`
	ResultRadios    schemas.LocatorStrategy `mapstructure:"result_radios" yaml:"result_radios"`
	ResultItems     schemas.LocatorStrategy `mapstructure:"result_items" yaml:"result_items"`
	Details         schemas.LocatorStrategy `mapstructure:"details" yaml:"details"`
	ServiceRadio    schemas.LocatorStrategy `mapstructure:"service_radio" yaml:"service_radio"`
	ServiceTrigger  schemas.LocatorStrategy `mapstructure:"service_trigger" yaml:"service_trigger"`
	ServiceConfirm  schemas.LocatorStrategy `mapstructure:"service_confirm" yaml:"service_confirm"`
	DongToggle      schemas.LocatorStrategy `mapstructure:"dong_toggle" yaml:"dong_toggle"`
	DongList        schemas.LocatorStrategy `mapstructure:"dong_list" yaml:"dong_list"`
	DongOptions     schemas.LocatorStrategy `mapstructure:"dong_options" yaml:"dong_options"`
	HoToggle        schemas.LocatorStrategy `mapstructure:"ho_toggle" yaml:"ho_toggle"`
	HoList          schemas.LocatorStrategy `mapstructure:"ho_list" yaml:"ho_list"`
	HoOptions       schemas.LocatorStrategy `mapstructure:"ho_options" yaml:"ho_options"`
	FinalQuery      schemas.LocatorStrategy `mapstructure:"final_query" yaml:"final_query"`
	ServiceResult   schemas.LocatorStrategy `mapstructure:"service_result" yaml:"service_result"`
	StructuredValue string                  `mapstructure:"structured_value_attr" yaml:"structured_value_attr"`
}

// WithDefaults returns a copy with every empty section replaced by its default.
func (l LocatorsConfig) WithDefaults() LocatorsConfig {
	d := DefaultLocators()
	fill := func(dst *schemas.LocatorStrategy, def schemas.LocatorStrategy) {
		if len(*dst) == 0 {
			*dst = def
		}
	}
	fill(&l.Popups, d.Popups)
	fill(&l.Input, d.Input)
	fill(&l.Submit, d.Submit)
	fill(&l.ResultRadios, d.ResultRadios)
	fill(&l.ResultItems, d.ResultItems)
	fill(&l.Details, d.Details)
	fill(&l.ServiceRadio, d.ServiceRadio)
	fill(&l.ServiceTrigger, d.ServiceTrigger)
	fill(&l.ServiceConfirm, d.ServiceConfirm)
	fill(&l.DongToggle, d.DongToggle)
	fill(&l.DongList, d.DongList)
	fill(&l.DongOptions, d.DongOptions)
	fill(&l.HoToggle, d.HoToggle)
	fill(&l.HoList, d.HoList)
	fill(&l.HoOptions, d.HoOptions)
	fill(&l.FinalQuery, d.FinalQuery)
	fill(&l.ServiceResult, d.ServiceResult)
	if l.StructuredValue == "" {
		l.StructuredValue = d.StructuredValue
	}
	return l
}

// DefaultLocators returns the strategies observed on the live serviceability page.
func DefaultLocators() LocatorsConfig {
	return LocatorsConfig{
		Popups: schemas.LocatorStrategy{
			schemas.CSS("a.modal_close.modal_confirm_btn"),
			schemas.CSS("button.close"),
			schemas.CSS(".btn-close"),
		},
		Input: schemas.LocatorStrategy{
			schemas.ByID("inpNameStreet"),
			schemas.ByName("input", "keyword"),
			schemas.CSS("input#keyword"),
			schemas.ByID("keyword"),
			schemas.ByPlaceholder("input", "주소"),
			schemas.ByPlaceholder("input", "지번"),
			schemas.ByPlaceholder("input", "도로명"),
			schemas.CSS("input[type='search']"),
			schemas.CSS("input[type='text']"),
		},
		Submit: schemas.LocatorStrategy{
			schemas.ByID("btnNameSearchStreet"),
			schemas.CSS("button.btn-search"),
			schemas.CSS("button[type='submit']"),
			schemas.CSS(".btn-search"),
			schemas.CSS("input[type='submit']"),
			schemas.ByID("searchBtn"),
			schemas.CSS("a.btn-search"),
		},
		ResultRadios: schemas.LocatorStrategy{
			schemas.CSS(".adress_search_result-item input[type='radio']"),
		},
		ResultItems: schemas.LocatorStrategy{
			schemas.CSS(".result-list li"),
			schemas.CSS(".search-result li"),
			schemas.CSS(".addr-list li"),
			schemas.CSS("ul.list-result li"),
			schemas.CSS(".result-item"),
			schemas.CSS("li[class*='item']"),
		},
		Details: schemas.LocatorStrategy{
			schemas.CSS(".result-detail"),
			schemas.CSS(".selected-address"),
			schemas.CSS("div[class*='detail']"),
			schemas.CSS("div[class*='result']"),
			schemas.CSS("table"),
			schemas.CSS(".info-table"),
			schemas.CSS(".address-info"),
		},
		ServiceRadio: schemas.LocatorStrategy{
			schemas.CSS("label[for='radio_01']"),
			schemas.ByID("radio_01"),
			schemas.CSS("input[type='radio'][id='radio_01']"),
		},
		ServiceTrigger: schemas.LocatorStrategy{
			schemas.ByText("button", "서비스조회"),
			schemas.ByText("a", "서비스조회"),
			schemas.CSS("div.butn_wrap.event_pop_butn"),
		},
		ServiceConfirm: schemas.LocatorStrategy{
			schemas.CSS("a.modal_close.modal_confirm_btn"),
		},
		DongToggle:  schemas.LocatorStrategy{schemas.CSS("button#input_Id3")},
		DongList:    schemas.LocatorStrategy{schemas.CSS("ul#dongSelectList")},
		DongOptions: schemas.LocatorStrategy{schemas.CSS("ul#dongSelectList li button")},
		HoToggle:    schemas.LocatorStrategy{schemas.CSS("button#input_Id4")},
		HoList:      schemas.LocatorStrategy{schemas.CSS("ul#hoSelectList")},
		HoOptions:   schemas.LocatorStrategy{schemas.CSS("ul#hoSelectList li button")},
		FinalQuery:  schemas.LocatorStrategy{schemas.CSS("button#GA_CY_MENU_C00000001")},
		ServiceResult: schemas.LocatorStrategy{
			schemas.CSS(".svc_result_wrap"),
			schemas.CSS("#svcResultArea"),
			schemas.CSS("div[class*='service_result']"),
		},
		StructuredValue: "data-value",
	}
}
