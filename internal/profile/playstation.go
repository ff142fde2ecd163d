package profile

import "github.com/JonMunkholm/datadonation/internal/extract"

// PlayStation is the profile for the PlayStation personal data export.
// Sheet names carry literal double quotes, as in the exported workbook.
const PlayStation = "playstation"

func init() {
	Register(Profile{
		Name:  PlayStation,
		Title: "PlayStation",
		Sheets: []extract.SheetSpec{
			extract.TargetedSheet(`"Account Device"`,
				"Console Id", "Name", "Console Type", "Account Id"),
			extract.TargetedSheet(`"Gameplay Online"`,
				"Name", "Date Of Play", "Session Duration", "Total Session"),
			extract.TargetedSheet(`"No of Friends"`,
				"Friends in Current Month"),
			extract.GenericSheet(`"PS Now"`),
			extract.TargetedSheet(`"Ps Stars Campaigns"`,
				"Campaign Name", "Status", "Registration Date", "Completion Date"),
			extract.TargetedSheet(`"Ps Stars Collectibles"`,
				"Collectible Name", "Rarity", "Earned Date"),
			extract.TargetedSheet(`"Ps Stars Enrollments"`,
				"Enrollment Status"),
			extract.TargetedSheet(`"Ps Stars Points History"`,
				"Points", "Point Type", "Point Usage", "Point Expiration Date",
				"Transaction Datetime", "Transaction Id", "Product Name", "Campaign Name"),
			extract.GenericSheet(`"PS VR"`),
			extract.GenericSheet(`"Subscription"`),
			extract.TargetedSheet(`"Transaction Detail"`,
				"Transaction Date", "Game Name", "Product Name", "Content Type",
				"Platform", "Transaction Id", "Transaction Type", "Order Id",
				"Order Quantity", "Final Price", "Currency Code"),
		},
	})
}
