package i18n

var messages = map[string]map[string]string{
	LocaleEN: {
		"error.bad_request":                  "Invalid request",
		"error.unauthorized":                 "Unauthorized",
		"error.forbidden":                    "Forbidden",
		"error.not_found":                    "Resource not found",
		"error.internal":                     "Internal server error",
		"error.rate_limited":                 "Too many requests. Please try again in %d seconds",
		"error.rate_limit_unavailable":       "Rate limiting is temporarily unavailable",
		"error.login_too_many":               "Too many login attempts. Please try again in %d seconds",
		"error.jwt_secret_missing":           "Authentication is not configured",
		"error.auth_header_missing":          "Authorization header is required",
		"error.auth_header_invalid":          "Authorization header is invalid",
		"error.token_invalid":                "Invalid token",
		"error.token_revoked":                "Token has been revoked",
		"error.invalid_credentials":          "Invalid username or password",
		"error.email_invalid":                "Invalid email format",
		"error.phone_invalid":                "Invalid phone number format",
		"error.contact_required":             "Email and phone number are required",
		"error.code_required":                "Code and session ID are required",
		"error.captcha_required":             "Captcha is required",
		"error.captcha_invalid":              "Captcha is invalid",
		"error.captcha_config_invalid":       "Captcha is not configured",
		"error.captcha_verify_failed":        "Captcha verification failed",
		"error.verification_not_found":       "Invalid session or code has expired",
		"error.verification_expired":         "Verification code has expired",
		"error.verification_code_invalid":    "Invalid verification code",
		"error.session_locked":               "Too many failed attempts. Please try again later",
		"error.send_code_failed":             "Failed to send verification code. Please try again",
		"error.access_token_required":        "Access token is required",
		"error.access_token_invalid":         "Invalid or expired access token",
		"error.wrong_content":                "Access token is not valid for this content",
		"error.content_not_found":            "Content not found or expired",
		"error.content_invalid":              "Title and content are required",
		"error.campaign_not_found":           "Campaign not found",
		"error.campaign_invalid":             "Missing required fields",
		"error.campaign_status_invalid":      "Campaign cannot be sent in its current status",
		"error.campaign_send_failed":         "Failed to send campaign",
		"error.email_connection_failed":      "Email service connection failed",
		"error.email_service_not_configured": "Email service is not configured",
		"error.email_send_failed":            "Failed to send email",
		"error.email_recipient_not_found":    "Recipient mailbox does not exist",
		"error.provider_unsupported":         "Unsupported email provider",
		"error.credential_not_found":         "Credential not found",
		"error.credential_invalid":           "Credential fields are invalid",
		"error.alias_not_found":              "Sender alias not found",
		"error.alias_invalid":                "Real email and alias email are required",
		"error.alias_token_invalid":          "Invalid or expired verification token",
		"error.template_not_found":           "Template not found",
		"error.template_invalid":             "Template name and content are required",
		"error.queue_unavailable":            "Queue is unavailable",
		"error.url_required":                 "Missing URL parameter",
		"error.role_invalid":                 "Role is invalid",
		"error.too_many_requests":            "Too many requests. Please try again later",
		"error.captcha_unavailable":          "Captcha is temporarily unavailable",
		"error.captcha_generate_failed":      "Failed to generate captcha",
		"error.fetch_failed":                 "Failed to fetch data",
		"error.save_failed":                  "Failed to save",
		"error.delete_failed":                "Failed to delete",
		"error.login_failed":                 "Login failed",
		"error.password_old_invalid":         "Current password is incorrect",
		"error.password_weak":                "Password does not meet strength requirements",
		"error.admin_not_found":              "Administrator not found",
		"error.admin_id_invalid":             "Invalid administrator ID",
		"error.analytics_range_invalid":      "Invalid analytics range",
	},
	LocaleZH: {
		"error.bad_request":                  "请求参数错误",
		"error.unauthorized":                 "未授权",
		"error.forbidden":                    "无访问权限",
		"error.not_found":                    "资源不存在",
		"error.internal":                     "服务器内部错误",
		"error.rate_limited":                 "请求过于频繁，请在 %d 秒后重试",
		"error.rate_limit_unavailable":       "限流服务暂不可用",
		"error.login_too_many":               "登录尝试过多，请在 %d 秒后重试",
		"error.jwt_secret_missing":           "鉴权未配置",
		"error.auth_header_missing":          "缺少 Authorization 请求头",
		"error.auth_header_invalid":          "Authorization 请求头格式错误",
		"error.token_invalid":                "Token 无效",
		"error.token_revoked":                "Token 已失效",
		"error.invalid_credentials":          "用户名或密码错误",
		"error.email_invalid":                "邮箱格式错误",
		"error.phone_invalid":                "手机号格式错误",
		"error.contact_required":             "邮箱和手机号不能为空",
		"error.code_required":                "验证码和会话 ID 不能为空",
		"error.captcha_required":             "请完成图形验证码",
		"error.captcha_invalid":              "图形验证码错误",
		"error.captcha_config_invalid":       "图形验证码未配置",
		"error.captcha_verify_failed":        "图形验证码校验失败",
		"error.verification_not_found":       "会话无效或验证码已过期",
		"error.verification_expired":         "验证码已过期",
		"error.verification_code_invalid":    "验证码错误",
		"error.session_locked":               "失败次数过多，请稍后再试",
		"error.send_code_failed":             "验证码发送失败，请重试",
		"error.access_token_required":        "缺少访问令牌",
		"error.access_token_invalid":         "访问令牌无效或已过期",
		"error.wrong_content":                "访问令牌不适用于该内容",
		"error.content_not_found":            "内容不存在或已过期",
		"error.content_invalid":              "标题和内容不能为空",
		"error.campaign_not_found":           "活动不存在",
		"error.campaign_invalid":             "缺少必填字段",
		"error.campaign_status_invalid":      "当前状态的活动无法发送",
		"error.campaign_send_failed":         "活动发送失败",
		"error.email_connection_failed":      "邮件服务连接失败",
		"error.email_service_not_configured": "邮件服务未配置",
		"error.email_send_failed":            "邮件发送失败",
		"error.email_recipient_not_found":    "收件邮箱不存在",
		"error.provider_unsupported":         "不支持的邮件服务商",
		"error.credential_not_found":         "发信凭据不存在",
		"error.credential_invalid":           "发信凭据字段无效",
		"error.alias_not_found":              "发件别名不存在",
		"error.alias_invalid":                "真实邮箱和别名邮箱不能为空",
		"error.alias_token_invalid":          "验证链接无效或已过期",
		"error.template_not_found":           "模板不存在",
		"error.template_invalid":             "模板名称和内容不能为空",
		"error.queue_unavailable":            "队列不可用",
		"error.url_required":                 "缺少 URL 参数",
		"error.role_invalid":                 "角色无效",
		"error.too_many_requests":            "请求过于频繁，请稍后再试",
		"error.captcha_unavailable":          "图形验证码暂不可用",
		"error.captcha_generate_failed":      "图形验证码生成失败",
		"error.fetch_failed":                 "获取数据失败",
		"error.save_failed":                  "保存失败",
		"error.delete_failed":                "删除失败",
		"error.login_failed":                 "登录失败",
		"error.password_old_invalid":         "原密码错误",
		"error.password_weak":                "密码强度不足",
		"error.admin_not_found":              "管理员不存在",
		"error.admin_id_invalid":             "管理员 ID 无效",
		"error.analytics_range_invalid":      "统计区间无效",
	},
}
