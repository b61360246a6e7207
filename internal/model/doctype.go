package model

import "strings"

// DocumentTypeCode is the registry's document type classification.
type DocumentTypeCode string

// Document type codes published by the registry. DocumentTypeUnknown stands
// for any code outside the published list.
const (
	DocumentType010     DocumentTypeCode = "010"
	DocumentType020     DocumentTypeCode = "020"
	DocumentType030     DocumentTypeCode = "030"
	DocumentType040     DocumentTypeCode = "040"
	DocumentType050     DocumentTypeCode = "050"
	DocumentType060     DocumentTypeCode = "060"
	DocumentType070     DocumentTypeCode = "070"
	DocumentType080     DocumentTypeCode = "080"
	DocumentType090     DocumentTypeCode = "090"
	DocumentType100     DocumentTypeCode = "100"
	DocumentType110     DocumentTypeCode = "110"
	DocumentType120     DocumentTypeCode = "120"
	DocumentType130     DocumentTypeCode = "130"
	DocumentType135     DocumentTypeCode = "135"
	DocumentType136     DocumentTypeCode = "136"
	DocumentType140     DocumentTypeCode = "140"
	DocumentType150     DocumentTypeCode = "150"
	DocumentType160     DocumentTypeCode = "160"
	DocumentType170     DocumentTypeCode = "170"
	DocumentType180     DocumentTypeCode = "180"
	DocumentType190     DocumentTypeCode = "190"
	DocumentType200     DocumentTypeCode = "200"
	DocumentType210     DocumentTypeCode = "210"
	DocumentType220     DocumentTypeCode = "220"
	DocumentType230     DocumentTypeCode = "230"
	DocumentType235     DocumentTypeCode = "235"
	DocumentType236     DocumentTypeCode = "236"
	DocumentType240     DocumentTypeCode = "240"
	DocumentType250     DocumentTypeCode = "250"
	DocumentType260     DocumentTypeCode = "260"
	DocumentType270     DocumentTypeCode = "270"
	DocumentType280     DocumentTypeCode = "280"
	DocumentType290     DocumentTypeCode = "290"
	DocumentType300     DocumentTypeCode = "300"
	DocumentType310     DocumentTypeCode = "310"
	DocumentType320     DocumentTypeCode = "320"
	DocumentType330     DocumentTypeCode = "330"
	DocumentType340     DocumentTypeCode = "340"
	DocumentType350     DocumentTypeCode = "350"
	DocumentType360     DocumentTypeCode = "360"
	DocumentType370     DocumentTypeCode = "370"
	DocumentType380     DocumentTypeCode = "380"
	DocumentTypeUnknown DocumentTypeCode = "999"
)

var documentTypeNames = map[DocumentTypeCode]string{
	DocumentType010:     "有価証券通知書",
	DocumentType020:     "変更通知書（有価証券通知書）",
	DocumentType030:     "有価証券届出書",
	DocumentType040:     "訂正有価証券届出書",
	DocumentType050:     "届出の取下げ願い",
	DocumentType060:     "発行登録通知書",
	DocumentType070:     "変更通知書（発行登録通知書）",
	DocumentType080:     "発行登録書",
	DocumentType090:     "訂正発行登録書",
	DocumentType100:     "発行登録追補書類",
	DocumentType110:     "発行登録取下届出書",
	DocumentType120:     "有価証券報告書",
	DocumentType130:     "訂正有価証券報告書",
	DocumentType135:     "確認書",
	DocumentType136:     "訂正確認書",
	DocumentType140:     "四半期報告書",
	DocumentType150:     "訂正四半期報告書",
	DocumentType160:     "半期報告書",
	DocumentType170:     "訂正半期報告書",
	DocumentType180:     "臨時報告書",
	DocumentType190:     "訂正臨時報告書",
	DocumentType200:     "親会社等状況報告書",
	DocumentType210:     "訂正親会社等状況報告書",
	DocumentType220:     "自己株券買付状況報告書",
	DocumentType230:     "訂正自己株券買付状況報告書",
	DocumentType235:     "内部統制報告書",
	DocumentType236:     "訂正内部統制報告書",
	DocumentType240:     "公開買付届出書",
	DocumentType250:     "訂正公開買付届出書",
	DocumentType260:     "公開買付撤回届出書",
	DocumentType270:     "公開買付報告書",
	DocumentType280:     "訂正公開買付報告書",
	DocumentType290:     "意見表明報告書",
	DocumentType300:     "訂正意見表明報告書",
	DocumentType310:     "対質問回答報告書",
	DocumentType320:     "訂正対質問回答報告書",
	DocumentType330:     "別途買付け禁止の特例を受けるための申出書",
	DocumentType340:     "訂正別途買付け禁止の特例を受けるための申出書",
	DocumentType350:     "大量保有報告書",
	DocumentType360:     "訂正大量保有報告書",
	DocumentType370:     "基準日の届出書",
	DocumentType380:     "変更の届出書",
	DocumentTypeUnknown: "定義外",
}

// ParseDocumentTypeCode maps a registry code onto the closed set.
// Empty or unpublished codes become DocumentTypeUnknown.
func ParseDocumentTypeCode(code string) DocumentTypeCode {
	c := DocumentTypeCode(strings.TrimSpace(code))
	if _, ok := documentTypeNames[c]; ok {
		return c
	}
	return DocumentTypeUnknown
}

// Name returns the registry's label for the code.
func (c DocumentTypeCode) Name() string {
	if n, ok := documentTypeNames[c]; ok {
		return n
	}
	return documentTypeNames[DocumentTypeUnknown]
}

// IsQuarterly reports whether documents of this type carry a quarter.
func (c DocumentTypeCode) IsQuarterly() bool {
	return c == DocumentType140 || c == DocumentType150
}

// DocumentTypeCodes converts raw codes (from configuration) into the closed set.
func DocumentTypeCodes(raw []string) []DocumentTypeCode {
	out := make([]DocumentTypeCode, 0, len(raw))
	for _, r := range raw {
		out = append(out, ParseDocumentTypeCode(r))
	}
	return out
}

// ContainsDocumentType reports whether code is in set.
func ContainsDocumentType(set []DocumentTypeCode, code DocumentTypeCode) bool {
	for _, c := range set {
		if c == code {
			return true
		}
	}
	return false
}

// QuarterType identifies the quarter covered by a quarterly report.
type QuarterType string

const (
	Quarter1     QuarterType = "1"
	Quarter2     QuarterType = "2"
	Quarter3     QuarterType = "3"
	Quarter4     QuarterType = "4"
	QuarterOther QuarterType = ""
)

// ParseQuarterType maps a stored code onto the closed set.
func ParseQuarterType(code string) QuarterType {
	switch QuarterType(code) {
	case Quarter1, Quarter2, Quarter3, Quarter4:
		return QuarterType(code)
	}
	return QuarterOther
}

// QuarterFromDescription extracts the quarter from a registry description
// such as "有価証券報告書－第75期第2四半期(令和2年7月1日－令和2年9月30日)".
func QuarterFromDescription(desc string) QuarterType {
	start := strings.Index(desc, "期第")
	end := strings.Index(desc, "四半期(")
	if start < 0 || end < 0 || end <= start+len("期第") {
		return QuarterOther
	}
	return ParseQuarterType(desc[start+len("期第") : end])
}
