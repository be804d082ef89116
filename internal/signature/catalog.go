package signature

import "github.com/provascan/provascan/internal/model"

// Catalog is the full declarative pattern table the matcher and scorer run
// against: substring fingerprints, parameter-block vocabularies and URL
// patterns all live here so the catalog can grow without touching matching
// logic. Built once at startup, read-only afterwards, safe for concurrent
// readers.
type Catalog struct {
	// Entries are substring fingerprints checked against metadata fields.
	Entries []model.SignatureEntry

	// ParamTokens is the generation-parameter vocabulary; two or more
	// tokens in one field mark a Stable-Diffusion-style parameter block.
	ParamTokens []string

	// MidjourneyFlags are command-line style flags; two or more in one
	// field mark a Midjourney prompt.
	MidjourneyFlags []string

	// URLPatterns are matched against the media URL/filename, not the
	// metadata fields. Weak, corroborating evidence only.
	URLPatterns []model.SignatureEntry

	// DefinitiveTools lists generators whose explicit name match is
	// treated as conclusive by the scorer.
	DefinitiveTools []string
}

// DefaultCatalog returns the built-in signature catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Entries: []model.SignatureEntry{
			// Explicit tool names. Always high tier.
			{Pattern: "midjourney", Tool: "midjourney", Tier: model.TierHigh},
			{Pattern: "niji journey", Tool: "midjourney", Tier: model.TierHigh},
			{Pattern: "dall-e", Tool: "dall-e", Tier: model.TierHigh},
			{Pattern: "dall·e", Tool: "dall-e", Tier: model.TierHigh},
			{Pattern: "dalle", Tool: "dall-e", Tier: model.TierHigh},
			{Pattern: "stable diffusion", Tool: "stable-diffusion", Tier: model.TierHigh},
			{Pattern: "stablediffusion", Tool: "stable-diffusion", Tier: model.TierHigh},
			{Pattern: "sdxl", Tool: "stable-diffusion", Tier: model.TierHigh},
			{Pattern: "invokeai", Tool: "stable-diffusion", Tier: model.TierHigh},
			{Pattern: "comfyui", Tool: "comfyui", Tier: model.TierHigh},
			{Pattern: "automatic1111", Tool: "stable-diffusion", Tier: model.TierHigh},
			{Pattern: "novelai", Tool: "novelai", Tier: model.TierHigh},
			{Pattern: "adobe firefly", Tool: "firefly", Tier: model.TierHigh},
			{Pattern: "firefly", Tool: "firefly", Tier: model.TierHigh},
			{Pattern: "leonardo.ai", Tool: "leonardo", Tier: model.TierHigh},
			{Pattern: "leonardo ai", Tool: "leonardo", Tier: model.TierHigh},
			{Pattern: "runwayml", Tool: "runway", Tier: model.TierHigh},
			{Pattern: "runway gen", Tool: "runway", Tier: model.TierHigh},
			{Pattern: "ideogram", Tool: "ideogram", Tier: model.TierHigh},
			{Pattern: "flux.1", Tool: "flux", Tier: model.TierHigh},
			{Pattern: "black forest labs", Tool: "flux", Tier: model.TierHigh},
			{Pattern: "imagen", Tool: "imagen", Tier: model.TierHigh},
			{Pattern: "dreamstudio", Tool: "stable-diffusion", Tier: model.TierHigh},
			{Pattern: "craiyon", Tool: "craiyon", Tier: model.TierHigh},
			{Pattern: "bing image creator", Tool: "bing-image-creator", Tier: model.TierHigh},
			{Pattern: "recraft", Tool: "recraft", Tier: model.TierHigh},
			{Pattern: "krea.ai", Tool: "krea", Tier: model.TierHigh},
			{Pattern: "openai", Tool: "openai", Tier: model.TierMedium},

			// Generation vocabulary. Medium tier.
			{Pattern: "ai generated", Tier: model.TierMedium},
			{Pattern: "ai-generated", Tier: model.TierMedium},
			{Pattern: "generated by ai", Tier: model.TierMedium},
			{Pattern: "text-to-image", Tier: model.TierMedium},
			{Pattern: "txt2img", Tier: model.TierMedium},
			{Pattern: "img2img", Tier: model.TierMedium},
			{Pattern: "negative prompt", Tier: model.TierMedium},
			{Pattern: "diffusion model", Tier: model.TierMedium},
			{Pattern: "latent diffusion", Tier: model.TierMedium},
			{Pattern: "trainedonart", Tier: model.TierMedium},

			// Render/CGI tooling. Medium tier with a tool label so the
			// verdict can say what produced the image.
			{Pattern: "blender", Tool: "blender", Tier: model.TierMedium},
			{Pattern: "unreal engine", Tool: "unreal-engine", Tier: model.TierMedium},
			{Pattern: "octane render", Tool: "octane", Tier: model.TierMedium},
			{Pattern: "cinema 4d", Tool: "cinema4d", Tier: model.TierMedium},
			{Pattern: "3ds max", Tool: "3ds-max", Tier: model.TierMedium},
			{Pattern: "v-ray", Tool: "vray", Tier: model.TierMedium},

			// Generic tokens. Always low tier: too common to trust alone.
			{Pattern: "generated", Tier: model.TierLow},
			{Pattern: "artificial", Tier: model.TierLow},
			{Pattern: "synthetic", Tier: model.TierLow},
			{Pattern: "neural", Tier: model.TierLow},
		},

		ParamTokens: []string{
			"steps:",
			"sampler:",
			"cfg scale:",
			"seed:",
			"model hash:",
			"negative prompt:",
			"denoising strength:",
			"clip skip:",
		},

		MidjourneyFlags: []string{
			"--ar ",
			"--v ",
			"--stylize",
			"--chaos",
			"--quality",
			"--niji",
			"--weird",
		},

		URLPatterns: []model.SignatureEntry{
			{Pattern: "cdn.midjourney.com", Tool: "midjourney", Tier: model.TierHigh},
			{Pattern: "mj-gallery.com", Tool: "midjourney", Tier: model.TierHigh},
			{Pattern: "oaidalleapiprodscus", Tool: "dall-e", Tier: model.TierHigh},
			{Pattern: "oaiusercontent.com", Tool: "dall-e", Tier: model.TierHigh},
			{Pattern: "cdn.leonardo.ai", Tool: "leonardo", Tier: model.TierHigh},
			{Pattern: "firefly.adobe.com", Tool: "firefly", Tier: model.TierHigh},
			{Pattern: "cdn.openart.ai", Tool: "openart", Tier: model.TierHigh},
			{Pattern: "replicate.delivery", Tier: model.TierMedium},
			{Pattern: "image.lexica.art", Tool: "lexica", Tier: model.TierMedium},
			{Pattern: "civitai.com", Tier: model.TierMedium},
			{Pattern: "dreamstudio", Tool: "stable-diffusion", Tier: model.TierMedium},
			{Pattern: "ai-generated", Tier: model.TierLow},
			{Pattern: "aigenerated", Tier: model.TierLow},
			{Pattern: "ai_art", Tier: model.TierLow},
			{Pattern: "midjourney", Tool: "midjourney", Tier: model.TierMedium},
			{Pattern: "dalle", Tool: "dall-e", Tier: model.TierMedium},
		},

		DefinitiveTools: []string{
			"midjourney",
			"dall-e",
			"stable-diffusion",
			"firefly",
			"leonardo",
			"runway",
			"ideogram",
			"flux",
			"imagen",
			"comfyui",
			"novelai",
		},
	}
}

// IsDefinitive reports whether tool is on the unambiguous generator list.
func (c *Catalog) IsDefinitive(tool string) bool {
	for _, t := range c.DefinitiveTools {
		if t == tool {
			return true
		}
	}
	return false
}
