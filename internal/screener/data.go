package screener

// sectorDefault holds the average PER and operating margin of a sector;
// Fundamentals uses it as every symbol's sector benchmark. Separate
// tables for domestic (KRX) and overseas listings, matching the
// original analysis service's ScreenerConfig.
type sectorDefault struct {
	AvgPER           float64
	AvgOperatingMargin float64
}

var domesticSectorDefaults = map[string]sectorDefault{
	"semiconductor": {15.0, 20.0},
	"bio":           {40.0, 10.0},
	"auto":          {8.0, 7.0},
	"finance":       {6.0, 25.0},
	"chemical":      {10.0, 8.0},
	"it":            {25.0, 15.0},
	"telecom":       {10.0, 12.0},
	"energy":        {8.0, 5.0},
	"consumer":      {12.0, 10.0},
	"healthcare":    {25.0, 15.0},
	"other":         {12.0, 10.0},
}

var overseasSectorDefaults = map[string]sectorDefault{
	"semiconductor": {25.0, 30.0},
	"bio":           {50.0, 15.0},
	"auto":          {20.0, 10.0},
	"finance":       {12.0, 35.0},
	"chemical":      {18.0, 12.0},
	"it":            {30.0, 25.0},
	"telecom":       {15.0, 18.0},
	"energy":        {12.0, 10.0},
	"consumer":      {20.0, 12.0},
	"healthcare":    {28.0, 18.0},
	"other":         {18.0, 12.0},
}

// sectorMap assigns each known symbol to a sector key used above.
var sectorMap = map[string]string{
	"005930": "semiconductor", "000660": "semiconductor", "373220": "bio",
	"207940": "bio", "005380": "auto", "006400": "it", "051910": "chemical",
	"035420": "it", "068270": "bio", "105560": "finance", "012330": "auto",
	"055550": "finance", "028260": "other", "066570": "it", "096770": "energy",
	"034730": "other", "003670": "semiconductor", "015760": "energy",
	"032830": "finance", "018260": "it", "010130": "chemical", "009150": "semiconductor",
	"011200": "other", "000270": "auto", "086790": "finance", "323410": "finance",
	"033780": "consumer", "010950": "energy", "004020": "chemical", "030200": "telecom",

	"AAPL": "it", "MSFT": "it", "GOOGL": "it", "AMZN": "consumer", "NVDA": "semiconductor",
	"META": "it", "TSLA": "auto", "BRK.B": "finance", "UNH": "healthcare", "JNJ": "healthcare",
	"V": "finance", "XOM": "energy", "JPM": "finance", "WMT": "consumer", "PG": "consumer",
	"MA": "finance", "HD": "consumer", "CVX": "energy", "MRK": "healthcare", "ABBV": "healthcare",
	"LLY": "healthcare", "PEP": "consumer", "KO": "consumer", "COST": "consumer", "AVGO": "semiconductor",
	"TMO": "healthcare", "CSCO": "it", "ACN": "it", "MCD": "consumer", "DHR": "healthcare",
}

// exchangeMap assigns each known overseas ticker its listing exchange.
var exchangeMap = map[string]string{
	"AAPL": "NASD", "MSFT": "NASD", "GOOGL": "NASD", "AMZN": "NASD", "NVDA": "NASD",
	"META": "NASD", "TSLA": "NASD", "AVGO": "NASD", "COST": "NASD", "CSCO": "NASD", "PEP": "NASD",
	"TMO": "NYSE", "ACN": "NYSE", "MCD": "NYSE", "DHR": "NYSE", "BRK.B": "NYSE", "UNH": "NYSE",
	"JNJ": "NYSE", "V": "NYSE", "XOM": "NYSE", "JPM": "NYSE", "WMT": "NYSE", "PG": "NYSE",
	"MA": "NYSE", "HD": "NYSE", "CVX": "NYSE", "MRK": "NYSE", "ABBV": "NYSE", "LLY": "NYSE", "KO": "NYSE",
}

type financials struct {
	ROE              float64
	DividendYield    float64
	OperatingMargin  float64
	RevenueGrowthYoY float64
}

var financialsMap = map[string]financials{
	"005930": {8.5, 2.1, 15.0, 5.0}, "000660": {12.0, 1.5, 25.0, 30.0},
	"373220": {9.0, 0.3, 10.0, 15.0}, "207940": {3.0, 0.0, 5.0, 8.0},
	"005380": {10.0, 3.5, 8.0, 2.0}, "006400": {9.5, 1.8, 7.0, -3.0},
	"051910": {7.0, 1.2, 6.0, -2.0}, "035420": {14.0, 1.0, 25.0, 10.0},
	"068270": {11.0, 0.5, 12.0, 20.0}, "105560": {9.0, 4.5, 40.0, 5.0},
	"012330": {13.0, 2.0, 9.0, 8.0}, "055550": {8.0, 5.5, 38.0, 3.0},
	"028260": {7.5, 2.8, 9.0, 1.0}, "066570": {6.0, 1.5, 4.0, -5.0},
	"096770": {15.0, 4.0, 9.0, 12.0}, "034730": {8.0, 3.0, 10.0, 4.0},
	"003670": {10.0, 1.0, 18.0, 25.0}, "015760": {4.0, 2.2, 6.0, -1.0},
	"032830": {10.5, 1.8, 30.0, 6.0}, "018260": {13.0, 1.6, 11.0, 9.0},
	"010130": {5.0, 1.0, 7.0, -4.0}, "009150": {14.0, 1.4, 13.0, 18.0},
	"011200": {6.5, 2.0, 6.0, 2.0}, "000270": {9.0, 1.9, 8.0, 3.0},
	"086790": {7.0, 3.0, 20.0, 4.0}, "323410": {8.5, 0.0, 22.0, 10.0},
	"033780": {11.0, 5.0, 12.0, 1.0}, "010950": {6.0, 4.0, 5.0, -6.0},
	"004020": {4.5, 1.5, 4.0, -8.0}, "030200": {8.0, 5.5, 12.0, 1.0},

	"AAPL": {147.0, 0.5, 30.0, 2.0}, "MSFT": {38.0, 0.8, 42.0, 12.0},
	"GOOGL": {27.0, 0.0, 30.0, 10.0}, "AMZN": {20.0, 0.0, 9.0, 11.0},
	"NVDA": {115.0, 0.0, 62.0, 120.0}, "META": {30.0, 0.4, 38.0, 15.0},
	"TSLA": {20.0, 0.0, 10.0, 5.0}, "BRK.B": {9.0, 0.0, 15.0, 4.0},
	"UNH": {25.0, 1.5, 8.0, 8.0}, "JNJ": {30.0, 3.0, 25.0, 3.0},
	"V": {45.0, 0.8, 65.0, 10.0}, "XOM": {18.0, 3.5, 12.0, -5.0},
	"JPM": {16.0, 2.5, 35.0, 6.0}, "WMT": {18.0, 1.4, 4.5, 5.0},
	"PG": {30.0, 2.4, 22.0, 3.0}, "MA": {155.0, 0.6, 57.0, 11.0},
	"HD": {800.0, 2.3, 14.0, 2.0}, "CVX": {14.0, 4.0, 11.0, -6.0},
	"MRK": {40.0, 2.8, 28.0, 4.0}, "ABBV": {60.0, 3.5, 30.0, 2.0},
	"LLY": {70.0, 0.7, 26.0, 20.0}, "PEP": {45.0, 2.8, 15.0, 4.0},
	"KO": {42.0, 3.0, 28.0, 5.0}, "COST": {28.0, 0.6, 3.5, 9.0},
	"AVGO": {45.0, 1.7, 40.0, 18.0}, "TMO": {12.0, 0.2, 16.0, 3.0},
	"CSCO": {28.0, 3.0, 30.0, 1.0}, "ACN": {28.0, 1.7, 14.0, 4.0},
	"MCD": {160.0, 2.2, 45.0, 6.0}, "DHR": {10.0, 0.4, 20.0, 2.0},
}
