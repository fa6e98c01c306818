package domain

import "strings"

// DocCategory is the closed set of document classes the analyser recognizes.
type DocCategory string

const (
	CategoryInvoice                      DocCategory = "invoice"
	CategoryMarketplaceListingScreenshot DocCategory = "marketplace_listing_screenshot"
	CategoryChatScreenshot               DocCategory = "chat_screenshot"
	CategoryWebsiteScreenshot            DocCategory = "website_screenshot"
	CategoryOther                        DocCategory = "other"
)

// AllCategories lists every DocCategory in declaration order.
var AllCategories = []DocCategory{
	CategoryInvoice,
	CategoryMarketplaceListingScreenshot,
	CategoryChatScreenshot,
	CategoryWebsiteScreenshot,
	CategoryOther,
}

// IsValid reports whether c is one of the five known categories.
func (c DocCategory) IsValid() bool {
	switch c {
	case CategoryInvoice, CategoryMarketplaceListingScreenshot, CategoryChatScreenshot,
		CategoryWebsiteScreenshot, CategoryOther:
		return true
	}
	return false
}

func (c DocCategory) String() string {
	return string(c)
}

// ParseDocCategory maps model output to a DocCategory. Anything that is not
// exactly one of the known values (after trimming) becomes CategoryOther.
func ParseDocCategory(s string) DocCategory {
	c := DocCategory(strings.TrimSpace(s))
	if c.IsValid() {
		return c
	}
	return CategoryOther
}

// CategoryValues returns the string values of AllCategories, for schema enums.
func CategoryValues() []string {
	out := make([]string, len(AllCategories))
	for i, c := range AllCategories {
		out[i] = string(c)
	}
	return out
}

// BlockType tags the variant of a ContentBlock on the wire.
type BlockType string

const (
	BlockTypeText  BlockType = "text"
	BlockTypeImage BlockType = "image_url"
	BlockTypeFile  BlockType = "file"
)

// MIME types the block builder emits.
const (
	MIMETypeJPEG        = "image/jpeg"
	MIMETypePDF         = "application/pdf"
	MIMETypeOctetStream = "application/octet-stream"
)

// DocumentStatus is the outcome of processing one document in a batch.
type DocumentStatus string

const (
	DocumentStatusAnalysed DocumentStatus = "analysed"
	DocumentStatusFailed   DocumentStatus = "failed"
)
