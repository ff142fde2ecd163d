package templates

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Copy is the user-facing text of every page. Deployments translate or
// reword it with a YAML file; keys missing from the file keep their
// default.
type Copy struct {
	SiteTitle string       `yaml:"siteTitle"`
	Consent   ConsentCopy  `yaml:"consent"`
	Upload    UploadCopy   `yaml:"upload"`
	Review    ReviewCopy   `yaml:"review"`
	ThankYou  ThankYouCopy `yaml:"thankyou"`
}

type ConsentCopy struct {
	Title             string   `yaml:"title"`
	Intro             string   `yaml:"intro"`
	Process           string   `yaml:"process"`
	DonationAgreement string   `yaml:"donationAgreement"`
	AgreementPoints   []string `yaml:"agreementPoints"`
	AgreementCheckbox string   `yaml:"agreementCheckbox"`
	AgreeButton       string   `yaml:"agreeButton"`
}

type UploadCopy struct {
	Title             string   `yaml:"title"`
	Intro             string   `yaml:"intro"`
	UploadButton      string   `yaml:"uploadButton"`
	NoDataFound       string   `yaml:"noDataFound"`
	IncorrectFile     string   `yaml:"incorrectFile"`
	PossibleIssues    string   `yaml:"possibleIssues"`
	IssuePoints       []string `yaml:"issuePoints"`
	MissingSheets     string   `yaml:"missingSheets"`
	UnparseableSheets string   `yaml:"unparseableSheets"`
	ExpectedColumns   string   `yaml:"expectedColumns"`
	CheckFile         string   `yaml:"checkFile"`
	TryAgainButton    string   `yaml:"tryAgainButton"`
	Note              string   `yaml:"note"`
}

type ReviewCopy struct {
	DataOverview       string `yaml:"dataOverview"`
	Intro              string `yaml:"intro"`
	Expires            string `yaml:"expires"`
	UpdateSelection    string `yaml:"updateSelection"`
	SelectAll          string `yaml:"selectAll"`
	SelectNone         string `yaml:"selectNone"`
	DeleteSelectedRows string `yaml:"deleteSelectedRows"`
	DeletedRows        string `yaml:"deletedRows"`
	EmptySheet         string `yaml:"emptySheet"`
	SkippedSheets      string `yaml:"skippedSheets"`
	DonationPrompt     string `yaml:"donationPrompt"`
	DonateButton       string `yaml:"donateButton"`
	DeclineButton      string `yaml:"declineButton"`
	Note               string `yaml:"note"`
}

type ThankYouCopy struct {
	Title          string `yaml:"title"`
	SuccessMessage string `yaml:"successMessage"`
	SubmissionID   string `yaml:"submissionId"`
	SaveID         string `yaml:"saveId"`
	Download       string `yaml:"download"`
	DeclineMessage string `yaml:"declineMessage"`
}

// DefaultCopy returns the built-in English text.
func DefaultCopy() Copy {
	return Copy{
		SiteTitle: "Data Donation",
		Consent: ConsentCopy{
			Title:             "Donate your data",
			Intro:             "This study collects the data export you requested from your account provider.",
			Process:           "You upload the export, review every row it contains and remove anything you do not want to share before donating.",
			DonationAgreement: "By donating you agree that:",
			AgreementPoints: []string{
				"Only the rows you keep after review are shared.",
				"The donation is used for research purposes only.",
				"You can decline at any point before donating.",
			},
			AgreementCheckbox: "I have read and agree to the terms above",
			AgreeButton:       "Continue",
		},
		Upload: UploadCopy{
			Title:          "Upload your export",
			Intro:          "Select the .xlsx file from your data export.",
			UploadButton:   "Upload and review",
			NoDataFound:    "No data found",
			IncorrectFile:  "We could not find any data in this file. It may not be the export we expect.",
			PossibleIssues: "Possible issues:",
			IssuePoints: []string{
				"The file is not the data export from your account provider.",
				"The export was modified after download.",
				"Your account has no activity in the exported categories.",
			},
			MissingSheets:     "Sheets not found in the file:",
			UnparseableSheets: "Sheets whose table could not be read:",
			ExpectedColumns:   "Expected columns",
			CheckFile:         "Please check the file and try again.",
			TryAgainButton:    "Try another file",
			Note:              "Your file is processed in memory and is not stored unless you donate.",
		},
		Review: ReviewCopy{
			DataOverview:       "Review your data",
			Intro:              "Uncheck rows you do not want to share and delete them. Only the remaining rows are donated.",
			Expires:            "This review expires at",
			UpdateSelection:    "Update selection",
			SelectAll:          "Select all",
			SelectNone:         "Select none",
			DeleteSelectedRows: "Delete selected rows",
			DeletedRows:        "Deleted rows",
			EmptySheet:         "No rows in this sheet.",
			SkippedSheets:      "Some sheets were not included:",
			DonationPrompt:     "Would you like to donate the remaining data?",
			DonateButton:       "Donate",
			DeclineButton:      "Decline",
			Note:               "Donating downloads a copy of exactly what is shared.",
		},
		ThankYou: ThankYouCopy{
			Title:          "Thank you",
			SuccessMessage: "Your donation was received.",
			SubmissionID:   "Your submission id",
			SaveID:         "Keep this id if you want to withdraw your donation later.",
			Download:       "Download a copy of your donation",
			DeclineMessage: "You declined to donate. Nothing was shared.",
		},
	}
}

// ParseCopy overlays YAML data on the default copy.
func ParseCopy(data []byte) (Copy, error) {
	c := DefaultCopy()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Copy{}, fmt.Errorf("parse page copy: %w", err)
	}
	return c, nil
}

// LoadCopy reads a page copy file. An empty path yields the defaults.
func LoadCopy(path string) (Copy, error) {
	if path == "" {
		return DefaultCopy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Copy{}, fmt.Errorf("read page copy: %w", err)
	}
	return ParseCopy(data)
}
