package storecrawl

import (
	"fmt"

	"github.com/spf13/viper"
)

// configService wraps viper for environment based configuration.
type configService struct {
	v *viper.Viper
}

func newConfig() *configService {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Missing .env is fine, everything has compiled-in defaults.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error reading Config file: %v\n", err)
		}
	}

	return &configService{v: v}
}

func (c *configService) Env(envName string, defaultValue ...interface{}) interface{} {
	value := c.v.Get(envName)
	if value != nil {
		return value
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return nil
}

func (c *configService) EnvString(envName string, defaultValue ...string) string {
	value := c.v.Get(envName)
	if value != nil {
		return fmt.Sprint(value)
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *configService) GetString(path string) string {
	return c.v.GetString(path)
}

func (c *configService) GetInt(path string) int {
	return c.v.GetInt(path)
}

func (c *configService) GetBool(path string) bool {
	return c.v.GetBool(path)
}

// Target describes one storefront: where its surfaces live, how its search
// URLs are built and which DOM nodes carry the scraped fields.
type Target struct {
	Name           string
	BaseUrl        string
	Domain         string
	LoginUrl       string
	HomeUrl        string
	SearchUrl      string
	LoginPathHints []string

	DefaultPageSize int
	KeywordParam    string
	OffsetParam     string
	SortParam       string
	SortValues      map[SortOrder]string
	MinPriceParam   string
	MaxPriceParam   string
	FreeShipParam   string
	FreeShipValue   string

	Selectors TargetSelectors
}

// TargetSelectors is the declarative extraction schema: adding a field is a
// data change here, not new control flow in the operations.
type TargetSelectors struct {
	LoggedOutIndicator string
	Username           Selector

	SearchItem  string
	SearchTotal Selector
	ItemTitle   Selector
	ItemPrice   Selector
	ItemImage   Selector
	ItemLink    Selector
	ItemShop    Selector
	ItemSales   Selector
	ItemPlace   Selector

	DetailTitle    Selector
	DetailPrice    Selector
	DetailOrigin   Selector
	DetailImages   MultiSelector
	DetailDesc     Selector
	DetailSpecRow  string
	DetailSpecName Selector
	DetailSpecVal  Selector
	DetailSeller   Selector
	DetailSellerID Selector
	DetailRating   Selector
	DetailPlace    Selector
	DetailCategory Selector
	DetailSales    Selector
	DetailReviews  Selector
	DetailShipping Selector
}

// getDefaultTarget returns the storefront profile, with URL overrides read
// from config so staging mirrors can be crawled without a rebuild.
func getDefaultTarget(config *configService) Target {
	baseUrl := config.EnvString("TARGET_BASE_URL", "https://www.taobao.com")
	return Target{
		Name:           config.EnvString("TARGET_NAME", "taobao"),
		BaseUrl:        baseUrl,
		Domain:         config.EnvString("TARGET_DOMAIN", "taobao.com"),
		LoginUrl:       config.EnvString("TARGET_LOGIN_URL", "https://login.taobao.com/member/login.jhtml"),
		HomeUrl:        config.EnvString("TARGET_HOME_URL", baseUrl),
		SearchUrl:      config.EnvString("TARGET_SEARCH_URL", "https://s.taobao.com/search"),
		LoginPathHints: []string{"/login", "/member/login", "/signin"},

		DefaultPageSize: 44,
		KeywordParam:    "q",
		OffsetParam:     "s",
		SortParam:       "sort",
		SortValues: map[SortOrder]string{
			SortDefault:   "",
			SortPriceAsc:  "price-asc",
			SortPriceDesc: "price-desc",
			SortSales:     "sale-desc",
			SortNewest:    "new-desc",
		},
		MinPriceParam: "start_price",
		MaxPriceParam: "end_price",
		FreeShipParam: "fs",
		FreeShipValue: "1",

		Selectors: TargetSelectors{
			LoggedOutIndicator: ".site-nav-login-info .h",
			Username:           Selector{Query: ".site-nav-user a"},

			SearchItem:  ".m-itemlist .items .item",
			SearchTotal: Selector{Query: ".total"},
			ItemTitle:   Selector{Query: ".title a"},
			ItemPrice:   Selector{Query: ".price"},
			ItemImage:   Selector{Query: ".pic img", Attr: "src"},
			ItemLink:    Selector{Query: ".title a", Attr: "href"},
			ItemShop:    Selector{Query: ".shopname"},
			ItemSales:   Selector{Query: ".deal-cnt"},
			ItemPlace:   Selector{Query: ".location"},

			DetailTitle:    Selector{Query: ".tb-detail-hd h1"},
			DetailPrice:    Selector{Query: ".tm-price, .tb-rmb-num"},
			DetailOrigin:   Selector{Query: ".tm-price-origin, .tb-original-price"},
			DetailImages:   MultiSelector{Query: "#J_UlThumb img", Attr: "src"},
			DetailDesc:     Selector{Query: "#J_DivItemDesc, .tb-item-desc"},
			DetailSpecRow:  "#J_AttrUL li",
			DetailSpecName: Selector{Query: ".attr-name"},
			DetailSpecVal:  Selector{Query: ".attr-value"},
			DetailSeller:   Selector{Query: ".tb-shop-name a, .shop-name"},
			DetailSellerID: Selector{Query: ".tb-shop-name a", Attr: "data-shopid"},
			DetailRating:   Selector{Query: ".tb-shop-rate .rate-score"},
			DetailPlace:    Selector{Query: ".tb-deliveryAdd"},
			DetailCategory: Selector{Query: ".tb-crumbs a:last-of-type"},
			DetailSales:    Selector{Query: ".tm-ind-sellCount .tm-count, #J_SellCounter"},
			DetailReviews:  Selector{Query: ".tm-ind-reviewCount .tm-count, #J_RateCounter"},
			DetailShipping: Selector{Query: ".tb-postage, #J_PostageToggleCont"},
		},
	}
}
