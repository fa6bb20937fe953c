package finding

// Type is the closed enum of finding codes. Prefixes group by audit
// surface: tech_ on-page/technical SEO, sec_ security, perf_ performance,
// crawl_ crawlability, visual_ vision audit, serp_ SERP audit.
type Type string

const (
	// Technical / on-page SEO.
	TypeMissingTitle       Type = "tech_missing_title"
	TypeDuplicateTitle     Type = "tech_duplicate_title"
	TypeTitleTooLong       Type = "tech_title_too_long"
	TypeTitleTooShort      Type = "tech_title_too_short"
	TypeMissingMetaDesc    Type = "tech_missing_meta_desc"
	TypeDuplicateMetaDesc  Type = "tech_duplicate_meta_desc"
	TypeMetaDescTooLong    Type = "tech_meta_desc_too_long"
	TypeMetaDescTooShort   Type = "tech_meta_desc_too_short"
	TypeMissingH1          Type = "tech_missing_h1"
	TypeMultipleH1         Type = "tech_multiple_h1"
	TypeMissingCanonical   Type = "tech_missing_canonical"
	TypeCanonicalMismatch  Type = "tech_canonical_mismatch"
	TypeMissingViewport    Type = "tech_missing_viewport"
	TypeMissingLang        Type = "tech_missing_lang"
	TypeMissingCharset     Type = "tech_missing_charset"
	TypeImagesMissingAlt   Type = "tech_images_missing_alt"
	TypeThinContent        Type = "tech_thin_content"
	TypeMissingSchema      Type = "tech_missing_schema"
	TypeInvalidSchema      Type = "tech_invalid_schema"
	TypeMixedContent       Type = "tech_mixed_content"

	// Security.
	TypeMissingHSTS         Type = "sec_missing_hsts"
	TypeMissingCSP          Type = "sec_missing_csp"
	TypeMissingContentType  Type = "sec_missing_content_type_options"
	TypeMissingFrameOptions Type = "sec_missing_frame_options"
	TypeMissingReferrer     Type = "sec_missing_referrer_policy"
	TypeHTTPSNotEnforced    Type = "sec_https_not_enforced"
	TypeCertExpiringSoon    Type = "sec_cert_expiring_soon"
	TypeLegacyTLS           Type = "sec_legacy_tls"
	TypeServerDisclosure    Type = "sec_server_disclosure"

	// Performance.
	TypePoorLCP      Type = "perf_poor_lcp"
	TypeNeedsWorkLCP Type = "perf_needs_work_lcp"
	TypePoorCLS      Type = "perf_poor_cls"
	TypeNeedsWorkCLS Type = "perf_needs_work_cls"
	TypePoorFID      Type = "perf_poor_fid"
	TypeNeedsWorkFID Type = "perf_needs_work_fid"
	TypeSlowTTFB     Type = "perf_slow_ttfb"
	TypeLowPerfScore Type = "perf_low_score"

	// Crawlability.
	TypeUnreachable       Type = "crawl_unreachable"
	TypeRedirectChainLong Type = "crawl_redirect_chain_long"
	TypeWWWInconsistent   Type = "crawl_www_inconsistent"
	TypeMissingRobots     Type = "crawl_missing_robots"
	TypeMissingSitemap    Type = "crawl_missing_sitemap"
	TypeBrokenLinks       Type = "crawl_broken_links"
	TypeRobotsBlocksAll   Type = "crawl_robots_blocks_all"
	TypeNoIPv6            Type = "crawl_no_ipv6"

	// LLM audits.
	TypeVisualIssue Type = "visual_issue"
	TypeSERPIssue   Type = "serp_issue"
)
