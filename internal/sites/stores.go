package sites

// TwoB is 2B (2b.com.eg).
var TwoB = register(&Site{
	Name:     "2b",
	Store:    "2B",
	Country:  "EG",
	Currency: "EGP",
	Roots: map[string]string{
		"ar": "https://2b.com.eg/ar/",
		"en": "https://2b.com.eg/en/",
	},
	CategoryPaths: []string{
		"mobile-tablets/mobile-phones.html",
		"mobile-phones.html",
	},
	NavKeywords: map[string][]string{
		"en": {"mobile phones", "mobile-phones", "smartphones"},
		"ar": {"موبايل", "هواتف", "mobile-phones"},
	},
	SearchPath: "catalogsearch/result/?q={query}&p={page}",
	Selectors: Selectors{
		Cards: []string{
			".products.list .product-item",
			".products.grid .product-item",
			".product-items .product-item",
			".product-item",
			"li.item.product",
			"div.item.product",
		},
		Title: []string{".product-item-name a", ".product-item-link", "a.product-item-link", "a[title]", ".product-item-name", "h2", "h3"},
		Link:  []string{".product-item-name a", "a.product-item-link"},
		Price: []string{".special-price .price", ".price", ".price-wrapper", ".price-box", "[data-price-type='finalPrice']"},
		Next:  []string{"a.action.next", "li.pages-item-next a", "a[rel='next']", "a.page-next"},
	},
	SearchTerms: brandTerms,
})

// Noon is noon Egypt.
var Noon = register(&Site{
	Name:     "noon",
	Store:    "noon",
	Country:  "EG",
	Currency: "EGP",
	Roots: map[string]string{
		"ar": "https://www.noon.com/egypt-ar/",
		"en": "https://www.noon.com/egypt-en/",
	},
	CategoryPaths: []string{
		"electronics-and-mobiles/mobiles-and-accessories/mobiles-20905/",
		"electronics-and-mobiles/mobiles-and-accessories/mobiles-20905/smartphones/",
	},
	NavKeywords: map[string][]string{
		"en": {"mobiles", "smartphones"},
		"ar": {"موبايلات", "الجوالات", "هواتف"},
	},
	SearchPath: "search/?q={query}&page={page}",
	Selectors: Selectors{
		Cards: []string{
			"div[data-qa='product-block']",
			"div.ProductBoxLinkHandler_linkWrapper__b0qZ9",
			"span.productContainer",
		},
		Title: []string{"h2.ProductDetailsSection_title__JorAV", "[data-qa='product-name']", "h2", "div[title]"},
		Link:  []string{"a[href*='/p/']"},
		Price: []string{"strong.Price_amount__2sXa7", "strong.amount", "[data-qa='price']"},
		Next:  []string{"a[aria-label='Next page']", "li.next a", "a[rel='next']"},
	},
	SearchTerms: brandTerms,
})

// AmazonEG is Amazon Egypt.
var AmazonEG = register(&Site{
	Name:     "amazon",
	Store:    "amazon.eg",
	Country:  "EG",
	Currency: "EGP",
	Roots: map[string]string{
		"ar": "https://www.amazon.eg/",
		"en": "https://www.amazon.eg/-/en/",
	},
	CategoryPaths: []string{
		"s?rh=n%3A21832883031",
		"b?node=21832883031",
	},
	NavKeywords: map[string][]string{
		"en": {"mobile phones", "smartphones", "21832883031"},
		"ar": {"الهواتف المحمولة", "هواتف", "21832883031"},
	},
	SearchPath: "s?k={query}&page={page}&rh=n%3A21832883031",
	Selectors: Selectors{
		Cards: []string{
			"div[data-component-type='s-search-result']",
			"div.s-result-item[data-asin]",
		},
		Title: []string{"h2 span", "h2", "span.a-text-normal"},
		Link:  []string{"a[href*='/dp/']", "h2 a"},
		Price: []string{".a-price .a-offscreen", "span.a-price-whole"},
		Next:  []string{"a.s-pagination-next", "a[aria-label*='Next']"},
	},
	SearchTerms: brandTerms,
})

// BTech is B.TECH.
var BTech = register(&Site{
	Name:     "btech",
	Store:    "B.TECH",
	Country:  "EG",
	Currency: "EGP",
	Roots: map[string]string{
		"ar": "https://btech.com/ar/",
		"en": "https://btech.com/en/",
	},
	CategoryPaths: []string{
		"mobiles-tablets/mobiles.html",
		"mobiles.html",
	},
	NavKeywords: map[string][]string{
		"en": {"mobiles", "smartphones"},
		"ar": {"موبايلات", "موبايل", "هواتف"},
	},
	SearchPath: "catalogsearch/result/?q={query}&p={page}",
	Selectors: Selectors{
		Cards: []string{"div.plpContentWrapper", ".product-item"},
		Title: []string{"h2.plpTitle", ".product-item-name a", "h2"},
		Link:  []string{"a.listingWrapperSection", "a.product-item-link"},
		Price: []string{"span.price-wrapper", ".price"},
		Next:  []string{"a.action.next", "li.pages-item-next a", "a[rel='next']"},
	},
	LinkOptional: true,
	SearchTerms:  brandTerms,
})

// Jumia is Jumia Egypt.
var Jumia = register(&Site{
	Name:     "jumia",
	Store:    "Jumia",
	Country:  "EG",
	Currency: "EGP",
	Roots: map[string]string{
		"ar": "https://www.jumia.com.eg/ar/",
		"en": "https://www.jumia.com.eg/",
	},
	CategoryPaths: []string{
		"mobile-phones/",
		"smartphones/",
	},
	NavKeywords: map[string][]string{
		"en": {"mobile phones", "phones & tablets", "smartphones"},
		"ar": {"موبايلات", "الهواتف", "هواتف"},
	},
	SearchPath: "catalog/?q={query}&page={page}",
	Selectors: Selectors{
		Cards: []string{"article.prd", "div.-paxs article"},
		Title: []string{"h3.name", ".info .name"},
		Link:  []string{"a.core"},
		Price: []string{"div.prc", ".prc"},
		Next:  []string{"a[aria-label='Next Page']", "a.pg[aria-label*='Next']"},
	},
	SearchTerms: brandTerms,
})
