package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "resume-autofill"

	// AutofillModulePrefix 自动填充模块
	AutofillModulePrefix = "autofill"

	// EntityResult 结构化结果实体
	EntityResult = "result"

	// KeyAutofillResult 自动填充结果缓存 (STRING, JSON)
	// 格式: resume-autofill:autofill:result:{fileMD5}
	KeyAutofillResult = AppPrefix + ":" + AutofillModulePrefix + ":" + EntityResult + ":%s"
)
