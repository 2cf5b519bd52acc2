package beans

import (
	"github.com/gocrud/ioc/meta"
)

// ConfigurationKind 配置类候选等级
type ConfigurationKind int

const (
	// KindNone 不是配置类候选
	KindNone ConfigurationKind = iota
	// KindLite 无 Configuration 注解但带 Bean 方法或导入类声明
	KindLite
	// KindFull 带 Configuration 注解，Bean 方法互调走容器
	KindFull
)

// CheckConfigurationCandidate 判定类型是否为配置类候选及其等级
func CheckConfigurationCandidate(md meta.TypeMetadata) ConfigurationKind {
	if md == nil || md.Type() == nil {
		return KindNone
	}
	if md.HasAnnotation(meta.TypeConfiguration) {
		return KindFull
	}
	if isLiteCandidate(md) {
		return KindLite
	}
	return KindNone
}

// isLiteCandidate 带任一配置类特征注解或 Bean 方法即为 lite 候选
func isLiteCandidate(md meta.TypeMetadata) bool {
	for _, atype := range []string{
		meta.TypeComponent,
		meta.TypeComponentScan,
		meta.TypeImport,
		meta.TypeImportResource,
	} {
		if md.HasAnnotation(atype) {
			return true
		}
	}
	return len(md.MethodAnnotations(meta.TypeBean)) > 0
}

// ConfigurationOrder 读取配置类的排序提示，未声明时排最后
func ConfigurationOrder(md meta.TypeMetadata) int {
	if ann, ok := md.Get(meta.TypeOrder); ok {
		return ann.Int("value")
	}
	return int(^uint(0) >> 1)
}

// interceptionEnabled 判断 full 配置类是否启用了 Bean 方法拦截
func interceptionEnabled(md meta.TypeMetadata) bool {
	ann, ok := md.Get(meta.TypeConfiguration)
	return ok && ann.Bool("interceptMethods")
}
