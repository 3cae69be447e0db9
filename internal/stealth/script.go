package stealth

// maskScript runs before any page script. It hides the automation flag,
// fakes a plausible plugin and language list, restores window.chrome, patches
// the permissions API, and perturbs canvas/WebGL readback so fingerprinting
// yields unstable values.
const maskScript = `(() => {
  Object.defineProperty(navigator, 'webdriver', { get: () => undefined });

  Object.defineProperty(navigator, 'plugins', {
    get: () => [1, 2, 3, 4, 5],
  });

  Object.defineProperty(navigator, 'languages', {
    get: () => ['en-US', 'en', 'es'],
  });

  window.chrome = window.chrome || {};
  window.chrome.runtime = window.chrome.runtime || {};

  const originalQuery = window.navigator.permissions.query;
  window.navigator.permissions.query = (parameters) => (
    parameters.name === 'notifications'
      ? Promise.resolve({ state: Notification.permission })
      : originalQuery(parameters)
  );

  const toDataURL = HTMLCanvasElement.prototype.toDataURL;
  HTMLCanvasElement.prototype.toDataURL = function (...args) {
    const ctx = this.getContext('2d');
    if (ctx && this.width > 0 && this.height > 0) {
      try {
        const pixel = ctx.getImageData(0, 0, 1, 1);
        pixel.data[0] = pixel.data[0] ^ (Math.floor(Math.random() * 2));
        ctx.putImageData(pixel, 0, 0);
      } catch (e) { /* tainted canvas */ }
    }
    return toDataURL.apply(this, args);
  };

  const getParameter = WebGLRenderingContext.prototype.getParameter;
  WebGLRenderingContext.prototype.getParameter = function (parameter) {
    if (parameter === 37445) return 'Intel Inc.';
    if (parameter === 37446) return 'Intel Iris OpenGL Engine';
    return getParameter.call(this, parameter);
  };
})();`
