package config

import (
	"github.com/twdocs/ocr-letter-extraction/dto"
)

// Calendar names accepted by date pattern specs.
const (
	CalendarGregorian = "gregorian"
	CalendarMinguo    = "minguo"
)

// DatePattern is one literal date layout. Pattern is a regular expression
// with exactly three capture groups: year, month, day. Patterns are tried
// in slice order; earlier patterns claim their spans first.
type DatePattern struct {
	Pattern  string `mapstructure:"pattern"`
	Calendar string `mapstructure:"calendar"`
}

// WeightedSuffix is one organizational ending with its specificity weight.
// Higher weight means a more specific suffix.
type WeightedSuffix struct {
	Suffix string `mapstructure:"suffix"`
	Weight int    `mapstructure:"weight"`
}

// Weights are the scoring coefficients applied to the candidate evidence
// terms. Their sum over maximal evidence defines the nominal score ceiling
// used when deriving confidence.
type Weights struct {
	Label   float64 `mapstructure:"label"`
	Format  float64 `mapstructure:"format"`
	Dist    float64 `mapstructure:"dist"`
	Dir     float64 `mapstructure:"dir"`
	Context float64 `mapstructure:"context"`
	Penalty float64 `mapstructure:"penalty"`
}

// Priors are the directional evidence values: a value found to the right
// of its label outranks one to the left, which outranks one below.
type Priors struct {
	Right float64 `mapstructure:"right"`
	Left  float64 `mapstructure:"left"`
	Below float64 `mapstructure:"below"`
}

// Windows bounds the text segments recognizers scan around a label.
type Windows struct {
	SideRunes        int `mapstructure:"side_runes"`
	BelowLines       int `mapstructure:"below_lines"`
	AgencyBelowLines int `mapstructure:"agency_below_lines"`
}

// Limits are the per-field proximity rejection rules.
type Limits struct {
	NameMaxLineDist   int     `mapstructure:"name_max_line_dist"`
	NameMaxColDist    int     `mapstructure:"name_max_col_dist"`
	AgencyMaxLineDist int     `mapstructure:"agency_max_line_dist"`
	MinDistScore      float64 `mapstructure:"min_dist_score"`
}

// Tables bundles every read-only input the pipeline is parameterized
// over. A Tables value is built once and shared across documents; nothing
// in the pipeline mutates it, so concurrent document processing needs no
// locking.
type Tables struct {
	Labels map[string][]string

	SingleSurnames   map[rune]bool
	CompoundSurnames map[string]bool
	GivenNameLens    []int
	Titles           []string

	OrgSuffixes     []WeightedSuffix
	OrgBlacklist    []string
	ContextKeywords []string

	DatePatterns []DatePattern

	// PenaltyTokens lists per-field context tokens that mark a line as a
	// contact-information block (phone, fax, address...), suppressing
	// candidates found there.
	PenaltyTokens map[string][]string

	Weights Weights
	Priors  Priors
	Windows Windows
	Limits  Limits

	// AnchorLabelConf is the synthetic label confidence assigned to
	// candidates found by anchor-assisted discovery.
	AnchorLabelConf float64
	ContextBonus    float64
	PenaltyStep     float64
}

// singleSurnameData covers the common single-character Taiwanese surnames.
const singleSurnameData = "趙錢孫李周吳鄭王馮陳褚衛蔣沈韓楊朱秦尤許何呂施張孔曹嚴華金魏陶姜戚謝鄒喻柏水竇章雲蘇潘葛奚范彭郎魯韋昌馬苗鳳花方俞任袁柳酆鮑史唐費廉岑薛雷賀倪湯滕殷羅畢郝鄔安常樂於時傅皮卞齊康伍余元卜顧孟平黃和穆蕭尹姚邵湛汪祁毛禹狄米貝明臧計伏成戴談宋茅龐熊紀舒屈項祝董梁杜阮藍閔席季麻強賈路婁危江童顏郭梅盛林刁鐘徐邱駱高夏蔡田樊胡凌霍虞萬支柯昝管盧莫經房裘繆解應宗丁宣賁鄧郁單杭洪包諸左石崔吉龔程嵇邢滑裴陸榮翁荀羊甄曲家封芮羿儲靳汲邴糜松井段富巫烏焦巴弓牧隗山谷車侯宓蓬全郗班仰秋仲伊宮寧仇欒暴甘鈄歷戎祖武符劉景詹束龍葉幸司韶郜黎薊薄印宿白懷蒲邰從鄂索咸籍賴卓藺屠蒙池喬陰鬱胥能蒼雙聞莘黨翟譚貢勞逄姬申扶堵冉宰雍卻璩桑桂濮牛壽通邊扈燕冀郟浦尚農溫別莊晏柴瞿閻充慕連茹習宦艾魚容向古易慎戈廖庾終暨居衡步都耿滿弘匡國文寇廣祿闕東歐殳沃利蔚越夔隆師鞏厙聶晁勾敖融冷訾辛闞那簡饒曾鞠開甯"

// compoundSurnameData covers the common two-character surnames, matched
// before single-character ones.
var compoundSurnameData = []string{
	"歐陽", "司馬", "諸葛", "上官", "夏侯", "司徒", "司空", "端木",
	"獨孤", "南宮", "南門", "東門", "西門", "皇甫", "公孫", "長孫",
	"太叔", "申屠", "呼延", "慕容", "宇文",
}

// DefaultTables returns the built-in extraction tables. The returned
// value is freshly allocated; callers may replace individual tables (for
// example with an externally loaded surname dictionary) before handing it
// to the service.
func DefaultTables() Tables {
	singles := make(map[rune]bool, len(singleSurnameData)/3)
	for _, r := range singleSurnameData {
		singles[r] = true
	}
	compounds := make(map[string]bool, len(compoundSurnameData))
	for _, s := range compoundSurnameData {
		compounds[s] = true
	}

	return Tables{
		Labels: map[string][]string{
			dto.FieldName:   {"函查對象", "查詢對象", "對象姓名", "受查人姓名", "姓名"},
			dto.FieldID:     {"國民身分證統一編號", "身分證統一編號", "身分證字號", "居留證號碼", "統一編號", "證號"},
			dto.FieldDate:   {"發文日期", "來函日期", "查詢日期", "日期"},
			dto.FieldBatch:  {"名冊流水編號", "名冊編號", "清冊編號", "名冊序號"},
			dto.FieldAgency: {"發文機關", "來函機關", "發文單位", "承辦機關", "機關名稱"},
		},

		SingleSurnames:   singles,
		CompoundSurnames: compounds,
		GivenNameLens:    []int{2, 3, 1},
		Titles: []string{
			"被保險人", "上訴人", "要保人", "投保人", "先生", "小姐", "女士",
			"同學", "股長", "經理", "主任", "科長", "被告", "原告", "君",
		},

		// Most specific endings first; weight ties keep the longer suffix
		// ahead so it claims the span before a generic one can.
		OrgSuffixes: []WeightedSuffix{
			{"金融監督管理委員會", 8},
			{"保險股份有限公司", 7},
			{"地方檢察署", 7},
			{"地方稅務局", 7},
			{"戶政事務所", 7},
			{"地方法院", 7},
			{"股份有限公司", 6},
			{"銀行分行", 6},
			{"警察局", 6},
			{"市政府", 6},
			{"縣政府", 6},
			{"地檢署", 5},
			{"區公所", 5},
			{"鄉公所", 5},
			{"法院", 5},
			{"分行", 5},
			{"分局", 5},
			{"基金會", 4},
			{"協會", 4},
			{"銀行", 4},
			{"公司", 4},
			{"院", 3},
			{"部", 2},
			{"署", 2},
			{"局", 2},
			{"處", 2},
			{"會", 2},
			{"科", 1},
			{"隊", 1},
		},
		OrgBlacklist: []string{
			"先生", "小姐", "女士", "同學", "股長", "經理", "主任", "科長",
		},
		ContextKeywords: []string{
			"發文機關", "發文單位", "來函機關", "寄件人", "主旨", "正本", "副本",
		},

		DatePatterns: []DatePattern{
			{Pattern: `(?:中華)?民國\s*(\d{1,3})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`, Calendar: CalendarMinguo},
			{Pattern: `(\d{4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`, Calendar: CalendarGregorian},
			{Pattern: `(\d{4})[/.-](\d{1,2})[/.-](\d{1,2})`, Calendar: CalendarGregorian},
			{Pattern: `(\d{2,3})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`, Calendar: CalendarMinguo},
		},

		PenaltyTokens: map[string][]string{
			dto.FieldName:   {"電話", "傳真", "手機", "電子郵件", "E-mail", "email", "信箱", "地址"},
			dto.FieldAgency: {"電話", "傳真", "電子郵件", "地址"},
		},

		Weights: Weights{Label: 0.5, Format: 0.8, Dist: 1.0, Dir: 0.4, Context: 0.3, Penalty: 0.5},
		Priors:  Priors{Right: 1.0, Left: 0.7, Below: 0.4},
		Windows: Windows{SideRunes: 80, BelowLines: 1, AgencyBelowLines: 2},
		Limits:  Limits{NameMaxLineDist: 1, NameMaxColDist: 12, AgencyMaxLineDist: 2, MinDistScore: 0.1},

		AnchorLabelConf: 0.3,
		ContextBonus:    1.0,
		PenaltyStep:     1.0,
	}
}

// MaxSuffixWeight returns the highest suffix weight in the table, used to
// scale agency format confidence.
func (t Tables) MaxSuffixWeight() int {
	maxw := 1
	for _, s := range t.OrgSuffixes {
		if s.Weight > maxw {
			maxw = s.Weight
		}
	}
	return maxw
}
