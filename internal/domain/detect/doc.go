// Package detect classifies User-Agent strings as embedded (in-app) browsers.
//
// Classification is a case-insensitive search over a fixed signature table.
// A match on any signature means "embedded"; the table is a plain disjunction
// so order only affects which app name is reported, never the verdict.
//
// Android WebView heuristics:
//   - "; wv)" token: emitted by Android System WebView since Lollipop. Always on.
//   - Legacy WebView: "Android" with "Version/N" and "Chrome/". Pre-Lollipop
//     WebViews and some OEM browsers look like this, so it can false-positive.
//     On by default, see Options.LegacyAndroidWebView.
//   - iOS WKWebView: iPhone/iPad/iPod without a "Safari/" token. Catches apps
//     that do not brand their UA, but also misfires on some third-party iOS
//     browsers. Off by default, see Options.IOSWebView.
//
// Recall is imperfect by nature; callers must tolerate both misses and
// false positives.
package detect
