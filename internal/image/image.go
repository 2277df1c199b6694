package image

import "context"

// MockURL Mock 生成器返回的固定图片地址
const MockURL = "https://via.placeholder.com/1024x1024.png?text=AI+Generated+Image"

// Generator 定义通用的文生图接口，返回图片 URL 或本地文件路径
type Generator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// Mock 不调用任何服务，用于本地调试
type Mock struct{}

// Ensure Mock implements Generator
var _ Generator = Mock{}

// GenerateImage 返回固定占位图
func (Mock) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return MockURL, nil
}
