package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const csvHeader = "User Name,Shop Name,Shop URL,Map URL,Place ID,Password,Logo,QR URL"

func TestFindQRURL(t *testing.T) {
	tests := []struct {
		name     string
		csv      string
		userName string
		wantURL  string
		wantOK   bool
	}{
		{
			name: "bare user name match",
			csv: csvHeader + "\n" +
				"cafeluna,Cafe Luna,cafeluna,https://maps.example/x,ChIJabc,pw,logo.png,https://cdn.example/qr/cafeluna.png",
			userName: "cafeluna",
			wantURL:  "https://cdn.example/qr/cafeluna.png",
			wantOK:   true,
		},
		{
			name: "quoted user name match",
			csv: csvHeader + "\n" +
				`"cafeluna","Cafe Luna","cafeluna","https://maps.example/x","ChIJabc","pw","logo.png","https://cdn.example/qr/cafeluna.png"`,
			userName: "cafeluna",
			wantURL:  "https://cdn.example/qr/cafeluna.png",
			wantOK:   true,
		},
		{
			name: "quoted field with comma does not shift columns",
			csv: csvHeader + "\n" +
				`cafeluna,"Luna, Cafe & Bar",cafeluna,https://maps.example/x,ChIJabc,pw,logo.png,https://cdn.example/qr/cafeluna.png`,
			userName: "cafeluna",
			wantURL:  "https://cdn.example/qr/cafeluna.png",
			wantOK:   true,
		},
		{
			name: "prefix user name does not match",
			csv: csvHeader + "\n" +
				"cafelunagrande,Other,x,y,z,pw,logo,https://cdn.example/qr/other.png",
			userName: "cafeluna",
			wantOK:   false,
		},
		{
			name: "qr cell not yet a url",
			csv: csvHeader + "\n" +
				"cafeluna,Cafe Luna,cafeluna,https://maps.example/x,ChIJabc,pw,logo.png,pending",
			userName: "cafeluna",
			wantOK:   false,
		},
		{
			name:     "header only",
			csv:      csvHeader,
			userName: "cafeluna",
			wantOK:   false,
		},
		{
			name: "crlf line endings",
			csv: csvHeader + "\r\n" +
				"cafeluna,Cafe Luna,cafeluna,https://maps.example/x,ChIJabc,pw,logo.png,https://cdn.example/qr/cafeluna.png\r\n",
			userName: "cafeluna",
			wantURL:  "https://cdn.example/qr/cafeluna.png",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, ok := FindQRURL(tt.csv, tt.userName)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantURL, url)
		})
	}
}

func TestSplitCSVLineEscapedQuotes(t *testing.T) {
	fields := splitCSVLine(`a,"say ""hi"", ok",c`)

	assert.Len(t, fields, 3)
	assert.Equal(t, `say "hi", ok`, unquote(fields[1]))
}
