package usecase

import (
	"context"
	"encoding/json"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

// imageSource は画像URLの取り出し方1つ。見つからなければ空文字。
type imageSource struct {
	name    string
	resolve func(ctx context.Context, variants repo.VariantRepository, v model.ProductVariant) string
}

// imageChain は解決順。上から順に試して最初に見つかったURLを使う。
//  1. 商品のプライマリ画像
//  2. 商品の先頭画像（sort順）
//  3. バリアントの画像URL
//  4. 商品の画像URL
//  5. バリアント属性JSONの画像キー
var imageChain = []imageSource{
	{
		name: "primary_product_image",
		resolve: func(ctx context.Context, variants repo.VariantRepository, v model.ProductVariant) string {
			img, err := variants.FindPrimaryImage(ctx, v.ProductID)
			if err != nil {
				return ""
			}
			return img.URL
		},
	},
	{
		name: "first_product_image",
		resolve: func(ctx context.Context, variants repo.VariantRepository, v model.ProductVariant) string {
			img, err := variants.FindFirstImage(ctx, v.ProductID)
			if err != nil {
				return ""
			}
			return img.URL
		},
	},
	{
		name: "variant_image_url",
		resolve: func(ctx context.Context, variants repo.VariantRepository, v model.ProductVariant) string {
			return v.ImageURL
		},
	},
	{
		name: "product_image_url",
		resolve: func(ctx context.Context, variants repo.VariantRepository, v model.ProductVariant) string {
			return v.Product.ImageURL
		},
	},
	{
		name: "attrs_image_key",
		resolve: func(ctx context.Context, variants repo.VariantRepository, v model.ProductVariant) string {
			if v.AttrsJSON == "" {
				return ""
			}
			var attrs map[string]any
			if err := json.Unmarshal([]byte(v.AttrsJSON), &attrs); err != nil {
				return ""
			}
			for _, key := range []string{"image", "image_url", "img", "thumbnail"} {
				if s, ok := attrs[key].(string); ok && s != "" {
					return s
				}
			}
			return ""
		},
	},
}

// resolveImageURL は表示用画像URLをチェーン順に解決する。どれも無ければ空。
func resolveImageURL(ctx context.Context, variants repo.VariantRepository, v model.ProductVariant) string {
	for _, src := range imageChain {
		if url := src.resolve(ctx, variants, v); url != "" {
			return url
		}
	}
	return ""
}
