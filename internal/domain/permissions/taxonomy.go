package permissions

import "github.com/heliumweb/helium/backend/internal/shared/types"

// taxonomy is the static permission table: category, risk, description.
// Unrecognized permission strings fall back to the unknown category at
// medium risk (see lookup).
var taxonomy = map[string]types.PermissionInfo{
	// Storage
	"storage":          {Name: "storage", Category: types.CategoryStorage, Risk: types.RiskLow, Description: "Store data in the extension's local storage area"},
	"unlimitedStorage": {Name: "unlimitedStorage", Category: types.CategoryStorage, Risk: types.RiskMedium, Description: "Exempt stored data from quota limits"},

	// UI
	"activeTab":      {Name: "activeTab", Category: types.CategoryUI, Risk: types.RiskLow, Description: "Access the currently active tab after a user gesture"},
	"tabs":           {Name: "tabs", Category: types.CategoryUI, Risk: types.RiskMedium, Description: "Read tab URLs, titles and manipulate browser tabs"},
	"contextMenus":   {Name: "contextMenus", Category: types.CategoryUI, Risk: types.RiskLow, Description: "Add items to the context menu"},
	"notifications":  {Name: "notifications", Category: types.CategoryUI, Risk: types.RiskLow, Description: "Show desktop notifications"},
	"clipboardWrite": {Name: "clipboardWrite", Category: types.CategoryUI, Risk: types.RiskLow, Description: "Write data to the clipboard"},
	"printing":       {Name: "printing", Category: types.CategoryUI, Risk: types.RiskLow, Description: "Send print jobs"},
	"wallpaper":      {Name: "wallpaper", Category: types.CategoryUI, Risk: types.RiskLow, Description: "Change the desktop wallpaper"},
	"tts":            {Name: "tts", Category: types.CategoryUI, Risk: types.RiskLow, Description: "Use text-to-speech synthesis"},
	"fontSettings":   {Name: "fontSettings", Category: types.CategoryUI, Risk: types.RiskLow, Description: "Manage font settings"},

	// Network
	"proxy":                 {Name: "proxy", Category: types.CategoryNetwork, Risk: types.RiskHigh, Description: "Control the browser's proxy settings"},
	"webRequest":            {Name: "webRequest", Category: types.CategoryNetwork, Risk: types.RiskHigh, Description: "Observe and analyze network traffic"},
	"webRequestBlocking":    {Name: "webRequestBlocking", Category: types.CategoryNetwork, Risk: types.RiskHigh, Description: "Block or modify network requests in flight"},
	"webNavigation":         {Name: "webNavigation", Category: types.CategoryNetwork, Risk: types.RiskMedium, Description: "Observe navigation events across frames"},
	"declarativeNetRequest": {Name: "declarativeNetRequest", Category: types.CategoryNetwork, Risk: types.RiskMedium, Description: "Block or redirect requests with declarative rules"},

	// File
	"downloads":          {Name: "downloads", Category: types.CategoryFile, Risk: types.RiskMedium, Description: "Manage downloads"},
	"filesystem":         {Name: "filesystem", Category: types.CategoryFile, Risk: types.RiskHigh, Description: "Read and write files in a sandboxed filesystem"},
	"fileSystemProvider": {Name: "fileSystemProvider", Category: types.CategoryFile, Risk: types.RiskHigh, Description: "Expose a virtual filesystem to the host"},

	// System
	"nativeMessaging": {Name: "nativeMessaging", Category: types.CategorySystem, Risk: types.RiskCritical, Description: "Exchange messages with native applications"},
	"management":      {Name: "management", Category: types.CategorySystem, Risk: types.RiskHigh, Description: "Manage other installed extensions"},
	"scripting":       {Name: "scripting", Category: types.CategorySystem, Risk: types.RiskHigh, Description: "Inject scripts into pages"},
	"usb":             {Name: "usb", Category: types.CategorySystem, Risk: types.RiskHigh, Description: "Communicate with USB devices"},
	"serial":          {Name: "serial", Category: types.CategorySystem, Risk: types.RiskHigh, Description: "Communicate over serial ports"},
	"bluetooth":       {Name: "bluetooth", Category: types.CategorySystem, Risk: types.RiskMedium, Description: "Communicate with Bluetooth devices"},
	"alarms":          {Name: "alarms", Category: types.CategorySystem, Risk: types.RiskLow, Description: "Schedule code to run periodically"},
	"idle":            {Name: "idle", Category: types.CategorySystem, Risk: types.RiskLow, Description: "Detect when the machine goes idle"},
	"power":           {Name: "power", Category: types.CategorySystem, Risk: types.RiskLow, Description: "Override system power management"},
	"system.cpu":      {Name: "system.cpu", Category: types.CategorySystem, Risk: types.RiskLow, Description: "Read CPU metadata"},
	"system.memory":   {Name: "system.memory", Category: types.CategorySystem, Risk: types.RiskLow, Description: "Read memory metadata"},
	"system.display":  {Name: "system.display", Category: types.CategorySystem, Risk: types.RiskLow, Description: "Read display metadata"},

	// Sensitive
	"debugger":       {Name: "debugger", Category: types.CategorySensitive, Risk: types.RiskCritical, Description: "Attach the debugger protocol to any tab"},
	"desktopCapture": {Name: "desktopCapture", Category: types.CategorySensitive, Risk: types.RiskCritical, Description: "Capture the screen, windows or tabs"},
	"history":        {Name: "history", Category: types.CategorySensitive, Risk: types.RiskHigh, Description: "Read and modify browsing history"},
	"cookies":        {Name: "cookies", Category: types.CategorySensitive, Risk: types.RiskHigh, Description: "Read and modify cookies for visited sites"},
	"clipboardRead":  {Name: "clipboardRead", Category: types.CategorySensitive, Risk: types.RiskHigh, Description: "Read data from the clipboard"},
	"geolocation":    {Name: "geolocation", Category: types.CategorySensitive, Risk: types.RiskHigh, Description: "Access the user's physical location"},
	"identity":       {Name: "identity", Category: types.CategorySensitive, Risk: types.RiskHigh, Description: "Access OAuth2 identity tokens"},
	"privacy":        {Name: "privacy", Category: types.CategorySensitive, Risk: types.RiskHigh, Description: "Change privacy-related browser settings"},
	"browsingData":   {Name: "browsingData", Category: types.CategorySensitive, Risk: types.RiskHigh, Description: "Clear browsing data"},
	"pageCapture":    {Name: "pageCapture", Category: types.CategorySensitive, Risk: types.RiskHigh, Description: "Save pages as MHTML"},
	"tabCapture":     {Name: "tabCapture", Category: types.CategorySensitive, Risk: types.RiskHigh, Description: "Capture tab audio and video"},
	"bookmarks":      {Name: "bookmarks", Category: types.CategorySensitive, Risk: types.RiskMedium, Description: "Read and modify bookmarks"},
	"sessions":       {Name: "sessions", Category: types.CategorySensitive, Risk: types.RiskMedium, Description: "Query and restore closed tabs and windows"},
	"topSites":       {Name: "topSites", Category: types.CategorySensitive, Risk: types.RiskMedium, Description: "Read the most visited sites"},
}

// scorePenalty is subtracted from the score for each blocked permission
var scorePenalty = map[types.RiskLevel]int{
	types.RiskNone:     0,
	types.RiskLow:      5,
	types.RiskMedium:   15,
	types.RiskHigh:     30,
	types.RiskCritical: 50,
}

// combination is one dangerous permission pair (order-independent)
type combination struct {
	a, b     string
	severity types.RiskLevel
	message  string
}

// combinations is the fixed combination-risk table
var combinations = []combination{
	{"debugger", "tabs", types.RiskCritical, "debugger combined with tabs allows full inspection of any tab"},
	{"proxy", "webRequest", types.RiskHigh, "proxy combined with webRequest allows silent traffic interception"},
	{"nativeMessaging", "debugger", types.RiskCritical, "nativeMessaging combined with debugger bridges the sandbox to native code"},
	{"filesystem", "debugger", types.RiskHigh, "filesystem combined with debugger allows exfiltration of inspected data"},
	{"usb", "serial", types.RiskCritical, "usb combined with serial grants broad hardware access"},
}

// lookup resolves a permission string against the taxonomy.
// Unrecognized permissions are unknown-category, medium-risk.
func lookup(name string) types.PermissionInfo {
	if info, ok := taxonomy[name]; ok {
		return info
	}
	return types.PermissionInfo{
		Name:        name,
		Category:    types.CategoryUnknown,
		Risk:        types.RiskMedium,
		Description: "Unrecognized permission",
	}
}
